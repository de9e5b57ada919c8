package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
)

type taggedCatalog struct {
	entity.BaseCatalog
	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	Ignored string `db:"-"`
	NoTag   string
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[taggedCatalog]()

	for _, expected := range []string{"id", "deletion_mark", "version", "code", "name"} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "Ignored")
	assert.NotContains(t, cols, "NoTag")
}

func TestStructToMap_Embedded(t *testing.T) {
	cat := taggedCatalog{
		BaseCatalog: entity.BaseCatalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				Version:      5,
			},
		},
		Code:    "TEST",
		Name:    "Test Name",
		Ignored: "never stored",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "TEST", m["code"])
	assert.Equal(t, "Test Name", m["name"])
	assert.NotContains(t, m, "Ignored")

	// Pointers flatten the same way
	pm := StructToMap(&cat)
	assert.Equal(t, "TEST", pm["code"])
}
