package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperetl/internal/domain/entity"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		article entity.Article
		wantErr error
	}{
		{
			name: "valid article",
			article: entity.Article{
				UID:      "abc123",
				Entry:    time.Now(),
				Sections: []entity.Section{{Name: "TITLE", Text: "A study"}},
			},
		},
		{
			name:    "missing uid",
			article: entity.Article{Sections: []entity.Section{{Text: "x"}}},
			wantErr: entity.ErrMissingUID,
		},
		{
			name:    "no sections",
			article: entity.Article{UID: "abc123"},
			wantErr: entity.ErrNoSections,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.article.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTagged(t *testing.T) {
	assert.False(t, (&entity.Article{}).Tagged())
	assert.True(t, (&entity.Article{Tags: "PMB; D000818"}).Tagged())
}
