package feishu

// BaseResponse 飞书API通用响应结构
type BaseResponse struct {
	Code int    `json:"code"` // 错误码，0表示成功
	Msg  string `json:"msg"`
}

// InteractiveCard 飞书交互式消息卡片
type InteractiveCard struct {
	Config   *CardConfig   `json:"config,omitempty"`
	Header   *CardHeader   `json:"header,omitempty"`
	Elements []CardElement `json:"elements,omitempty"`
}

type CardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

// CardHeader 卡片标题
type CardHeader struct {
	Title    CardText `json:"title"`
	Template string   `json:"template,omitempty"` // blue/green/red/orange
}

// CardText 卡片文本
type CardText struct {
	Tag     string `json:"tag"` // plain_text / lark_md
	Content string `json:"content"`
}

// CardElement 卡片元素（通用）
type CardElement struct {
	Tag      string        `json:"tag"` // div/hr/action/note
	Text     *CardText     `json:"text,omitempty"`
	Fields   []CardField   `json:"fields,omitempty"`
	Actions  []CardAction  `json:"actions,omitempty"`
	Elements []CardElement `json:"elements,omitempty"`
	Content  string        `json:"content,omitempty"`
}

type CardField struct {
	IsShort bool     `json:"is_short"`
	Text    CardText `json:"text"`
}

// CardAction 卡片操作按钮
type CardAction struct {
	Tag  string   `json:"tag"`
	Text CardText `json:"text"`
	Type string   `json:"type,omitempty"` // primary/danger/default
	URL  string   `json:"url,omitempty"`
}

// SendMessageResponse 发送消息响应
type SendMessageResponse struct {
	BaseResponse
	Data struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
}
