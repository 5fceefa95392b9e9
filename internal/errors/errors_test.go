package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorClassification(t *testing.T) {
	base := stderrors.New("disk full")
	err := NewStorageError("保存存档失败", base)

	assert.True(t, IsStorageError(err))
	assert.False(t, IsNotFoundError(err))
	assert.Equal(t, "STORAGE_ERROR", err.Code)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWrapErrorKeepsType(t *testing.T) {
	inner := NewNotFoundError("存档不存在", nil)
	wrapped := WrapError(fmt.Errorf("load: %w", inner), "读取存档", ErrorTypeStorage)

	assert.True(t, IsNotFoundError(wrapped))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))

	plain := WrapError(stderrors.New("boom"), "调用模型", ErrorTypeDependency)
	assert.True(t, IsDependencyError(plain))
	assert.Nil(t, WrapError(nil, "noop", ErrorTypeError))
}

func TestTypeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorTypeError, TypeOf(stderrors.New("x")))
	assert.True(t, IsSessionCompletedError(NewSessionCompletedError("结局已触发")))
}
