package resolver

import (
	"testing"
	"time"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func fixedClock() time.Time {
	return time.Date(2024, time.March, 5, 7, 8, 9, 0, time.UTC)
}

func TestTokenReplacer_Replace(t *testing.T) {
	nodeUUID := uuid.MustParse("6f1c1c32-8b43-4c55-9a4f-6f1f2c7d7c11")
	data := TokenData{
		Node:  &domain.Entity{Type: domain.EntityTypeNode, ID: 42, UUID: nodeUUID, Label: "Scan"},
		Media: &domain.Media{ID: 7, Name: "scan.tif"},
		Term:  &domain.Term{ID: 9, Name: "ExtractedText"},
	}
	r := NewTokenReplacer(fixedClock)

	tests := []struct {
		name     string
		template string
		data     TokenData
		want     string
	}{
		{
			name:     "default ocr path",
			template: "[date:custom:Y]-[date:custom:m]/[node:nid]-[term:name].txt",
			data:     data,
			want:     "2024-03/42-ExtractedText.txt",
		},
		{
			name:     "media path",
			template: "[date:custom:Y]-[date:custom:m]/[media:mid].bin",
			data:     data,
			want:     "2024-03/7.bin",
		},
		{
			name:     "date characters",
			template: "[date:custom:y.n.j_H:i:s_d]",
			data:     data,
			want:     "24.3.5_07:08:09_05",
		},
		{
			name:     "escaped date character",
			template: "[date:custom:\\Y-Y]",
			data:     data,
			want:     "Y-2024",
		},
		{
			name:     "uuid and title",
			template: "[node:uuid]/[node:title]/[term:tid]",
			data:     data,
			want:     nodeUUID.String() + "/Scan/9",
		},
		{
			name:     "unknown token kept",
			template: "[site:name]/[node:nid]",
			data:     data,
			want:     "[site:name]/42",
		},
		{
			name:     "unavailable object kept",
			template: "[node:nid]/[term:name]",
			data:     TokenData{Media: data.Media},
			want:     "[node:nid]/[term:name]",
		},
		{
			name:     "plain text",
			template: "static/name.bin",
			data:     data,
			want:     "static/name.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Replace(tt.template, tt.data))
		})
	}
}
