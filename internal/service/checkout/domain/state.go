// internal/service/checkout/domain/state.go
package domain

// Status 结账会话的状态。
// 状态机: WAITING -> PAID 或 WAITING -> CANCELLED，均为终态。
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// 取消原因
const (
	ReasonUserCancelled = "USER_CANCELLED"
	ReasonExpired       = "EXPIRED"
)

// IsTerminal 判断状态是否为终态。
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}
