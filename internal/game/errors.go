package game

import "fmt"

// 錯誤分為三類：ValidationError（操作不合法，狀態不變）、
// CapacityError（人數限制）、IntegrityError（理論上不可達的內部不一致，
// 拒絕操作而不破壞計數）。伺服端一律只回報給發起請求的連線。

// ValidationError 表示錯誤的行動者、階段或目標
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// NewValidationError 供上層套件以同一類別回報操作錯誤
func NewValidationError(msg string) error {
	return &ValidationError{msg: msg}
}

// CapacityError 表示房間人數超出允許範圍
type CapacityError struct {
	msg string
}

func (e *CapacityError) Error() string { return e.msg }

func capacityf(format string, args ...interface{}) error {
	return &CapacityError{msg: fmt.Sprintf(format, args...)}
}

// IntegrityError 表示違反內部不變量的狀態，屬於程式缺陷訊號
type IntegrityError struct {
	msg string
}

func (e *IntegrityError) Error() string { return e.msg }

func integrityf(format string, args ...interface{}) error {
	return &IntegrityError{msg: fmt.Sprintf(format, args...)}
}
