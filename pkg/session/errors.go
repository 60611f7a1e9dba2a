package session

import (
	"fmt"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// ValidationError はローカルな前提条件の違反（空のプロンプト、空の修正指示、
// 前提成果物の欠如など）を表します。ゲートウェイには一切触れず、状態も変更しません。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GuardViolation はガード条件を満たさない工程遷移の試行を表します。
// UI側の操作無効化とは独立に、遷移そのものでも必ず検査されます。
type GuardViolation struct {
	From    domain.Stage
	Message string
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("cannot advance from %s: %s", e.From, e.Message)
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
