package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filestore/service/internal/provider"
)

func TestBuildSelectQueryNoFilter(t *testing.T) {
	query, args := buildSelectQuery(Filter{})

	assert.Equal(t, "SELECT "+selectColumns+" FROM files ORDER BY created_at DESC", query)
	assert.Empty(t, args)
}

func TestBuildSelectQueryAscending(t *testing.T) {
	query, _ := buildSelectQuery(Filter{Order: OrderAsc})

	assert.Contains(t, query, "ORDER BY created_at ASC")
}

func TestBuildSelectQueryAllPredicates(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	sizeFrom, sizeTo := int64(10), int64(1000)
	limit, offset := 20, 40

	query, args := buildSelectQuery(Filter{
		IDs:         []string{"11111111-1111-1111-1111-111111111111"},
		Provider:    provider.Minio,
		Path:        "gallery",
		Mimetype:    "image/jpeg",
		Name:        "foo",
		CreatedFrom: &from,
		CreatedTo:   &to,
		SizeFrom:    &sizeFrom,
		SizeTo:      &sizeTo,
		Limit:       &limit,
		Offset:      &offset,
	})

	assert.Contains(t, query, "id = ANY($1::uuid[])")
	assert.Contains(t, query, "provider = $2")
	assert.Contains(t, query, "path = $3")
	assert.Contains(t, query, "mimetype = $4")
	assert.Contains(t, query, "name ILIKE $5")
	assert.Contains(t, query, "created_at >= $6")
	assert.Contains(t, query, "created_at <= $7")
	assert.Contains(t, query, "size >= $8")
	assert.Contains(t, query, "size <= $9")
	assert.Contains(t, query, "ORDER BY created_at DESC")
	assert.Contains(t, query, "LIMIT $10")
	assert.Contains(t, query, "OFFSET $11")

	require.Len(t, args, 11)
	assert.Equal(t, []string{"11111111-1111-1111-1111-111111111111"}, args[0])
	assert.Equal(t, "minio", args[1])
	assert.Equal(t, "%foo%", args[4])
	assert.Equal(t, from, args[5])
	assert.Equal(t, int64(10), args[7])
	assert.Equal(t, 20, args[9])
	assert.Equal(t, 40, args[10])
}

func TestBuildSelectQueryPredicatesAreConjoined(t *testing.T) {
	query, args := buildSelectQuery(Filter{Provider: provider.S3, Mimetype: "application/pdf"})

	assert.Contains(t, query, "WHERE provider = $1 AND mimetype = $2")
	assert.Equal(t, []any{"s3", "application/pdf"}, args)
}

func TestBuildSelectQueryEmptyStringsAddNoPredicates(t *testing.T) {
	query, args := buildSelectQuery(Filter{Path: "", Name: "", Mimetype: ""})

	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}
