package models

import (
	"errors"
	"fmt"
)

// ErrStateNotFound возвращается, когда в выходном каталоге нет сохранённого состояния
var ErrStateNotFound = errors.New("сохранённое состояние не найдено")

// SchemaError - нарушение инварианта схемы (дробный *_sk, мера неожиданного типа).
// Такая ошибка прерывает сборку: продолжение испортило бы связи звезды.
type SchemaError struct {
	Table  string
	Column string
	Value  any
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("нарушение схемы %s.%s (значение %v): %s", e.Table, e.Column, e.Value, e.Reason)
	}
	return fmt.Sprintf("нарушение схемы в колонке %s (значение %v): %s", e.Column, e.Value, e.Reason)
}

// IsSchemaError проверяет, содержит ли цепочка ошибок SchemaError
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}
