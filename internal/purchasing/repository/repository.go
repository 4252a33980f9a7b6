package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Repositories 采购仓库集合
type Repositories struct {
	User         *UserRepository
	Vendor       *VendorRepository
	Product      *ProductRepository
	PO           *PORepository
	Notification *NotificationRepository
	ActivityLog  *ActivityLogRepository
	Attachment   *AttachmentRepository
	Report       *ReportRepository
}

// NewRepositories 创建采购仓库集合
func NewRepositories(db *gorm.DB) (*Repositories, error) {
	report, err := NewReportRepository(db)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		User:         NewUserRepository(db),
		Vendor:       NewVendorRepository(db),
		Product:      NewProductRepository(db),
		PO:           NewPORepository(db),
		Notification: NewNotificationRepository(db),
		ActivityLog:  NewActivityLogRepository(db),
		Attachment:   NewAttachmentRepository(db),
		Report:       report,
	}, nil
}

// translate 统一转换数据库错误
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePattern 构造模糊匹配参数，用户输入的 % 和 _ 按字面匹配（配合 ESCAPE '\'）
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

func pageOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
