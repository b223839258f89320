package chatkit

// SessionCredential 返回给前端的凭证，只包含 client_secret
type SessionCredential struct {
	ClientSecret string `json:"client_secret"`
}

// UpstreamSessionResponse 上游响应中我们关心的字段，其余字段一律丢弃
type UpstreamSessionResponse struct {
	ClientSecret string `json:"client_secret"`
}
