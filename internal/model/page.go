package model

// Page 消息分页结果（对应服务端 Spring Data Page）
// Content 按到达顺序排列，最新的在最前
type Page struct {
	Content       []ChatMessage `json:"content"`
	Number        int           `json:"number"`
	Size          int           `json:"size"`
	TotalElements int64         `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
	Last          bool          `json:"last"`
}
