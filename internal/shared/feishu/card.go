package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SendCard 向群聊发送消息卡片
func (c *FeishuClient) SendCard(ctx context.Context, chatID string, card InteractiveCard) error {
	cardBytes, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("encode card: %w", err)
	}

	reqBody := map[string]interface{}{
		"receive_id": chatID,
		"msg_type":   "interactive",
		"content":    string(cardBytes),
	}
	var resp SendMessageResponse
	if err := c.doRequest(ctx, "POST", "/open-apis/im/v1/messages?receive_id_type=chat_id", reqBody, &resp); err != nil {
		return fmt.Errorf("send card: %w", err)
	}
	return nil
}

// StalePO 卡片中的一行待收货订单
type StalePO struct {
	PONumber   string
	VendorName string
	AgeDays    int
}

// NewStalePOCard 超期未确认收货订单提醒卡片
// detailURL 为空时不显示跳转按钮
func NewStalePOCard(orders []StalePO, detailURL string) InteractiveCard {
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, fmt.Sprintf("- **%s** %s（已 %d 天）", o.PONumber, o.VendorName, o.AgeDays))
	}

	elements := []CardElement{
		{
			Tag:  "div",
			Text: &CardText{Tag: "lark_md", Content: fmt.Sprintf("有 **%d** 张采购订单超期未确认收货：", len(orders))},
		},
		{
			Tag:  "div",
			Text: &CardText{Tag: "lark_md", Content: strings.Join(lines, "\n")},
		},
	}

	if detailURL != "" {
		elements = append(elements, CardElement{
			Tag: "action",
			Actions: []CardAction{
				{
					Tag:  "button",
					Text: CardText{Tag: "plain_text", Content: "查看提醒"},
					Type: "primary",
					URL:  detailURL,
				},
			},
		})
	}

	elements = append(elements,
		CardElement{Tag: "hr"},
		CardElement{
			Tag: "note",
			Elements: []CardElement{
				{Tag: "plain_text", Content: "请联系供应商或在系统中确认收货"},
			},
		},
	)

	return InteractiveCard{
		Config: &CardConfig{WideScreenMode: true},
		Header: &CardHeader{
			Title:    CardText{Tag: "plain_text", Content: "📦 采购订单收货提醒"},
			Template: "orange",
		},
		Elements: elements,
	}
}
