package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// 文档内容可达 1MB，MySQL 的 TEXT 只有 64KB
func TestContentColumnsUseLongText(t *testing.T) {
	for _, model := range []interface{}{&ChangeRecord{}, &DocumentSnapshot{}} {
		s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)
		field := s.LookUpField("Content")
		require.NotNil(t, field, "%T", model)
		assert.Equal(t, schema.DataType("longtext"), field.DataType, "%T", model)
	}
}
