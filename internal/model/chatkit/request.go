package chatkit

import (
	"fmt"
	"time"
)

// DeviceIDPrefix 前缀用于服务端生成的设备标识。
const DeviceIDPrefix = "user_"

// SessionRequest 前端创建会话的请求体，deviceId 可选
type SessionRequest struct {
	DeviceID *string `json:"deviceId,omitempty"`
}

// ResolveDeviceID returns the caller supplied device id when it is present and
// non-empty, otherwise user_<unix millis> computed from now.
func (r SessionRequest) ResolveDeviceID(now time.Time) string {
	if r.DeviceID != nil && *r.DeviceID != "" {
		return *r.DeviceID
	}
	return SyntheticDeviceID(now)
}

// SyntheticDeviceID formats the fallback identifier.
func SyntheticDeviceID(now time.Time) string {
	return fmt.Sprintf("%s%d", DeviceIDPrefix, now.UnixMilli())
}

// UpstreamSessionRequest 发送给 ChatKit 的会话创建请求
type UpstreamSessionRequest struct {
	Workflow WorkflowRef `json:"workflow"`
	User     string      `json:"user"`
}

// WorkflowRef 选择上游的工作流
type WorkflowRef struct {
	ID string `json:"id"`
}
