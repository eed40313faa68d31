package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	i := strings.Index(link, "start=")
	require.GreaterOrEqual(t, i, 0)
	req := ParseStart(link[i+len("start="):])
	require.Equal(t, StartFolderByToken, req.Kind)
	return req.Token
}

func TestFolderLink_TokenIsStable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.folders.Select(ctx, 1, "Trips")
	require.NoError(t, err)

	first, folder, err := env.links.FolderLink(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Trips", folder.Name)
	second, _, err := env.links.FolderLink(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	tok := tokenFromLink(t, first)
	assert.Len(t, tok, 16)
	assert.True(t, strings.HasPrefix(first, "https://t.me/keeper_bot?start=share_"))

	assert.Equal(t, []string{events.FolderShared}, env.pub.types())
}

func TestFolderLink_DistinctPerFolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.folders.Select(ctx, 1, "A")
	require.NoError(t, err)
	a, _, err := env.links.FolderLink(ctx, 1)
	require.NoError(t, err)

	_, err = env.folders.Select(ctx, 1, "B")
	require.NoError(t, err)
	b, _, err := env.links.FolderLink(ctx, 1)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFolderLink_TokenGenerationError(t *testing.T) {
	env := newTestEnv(t)
	env.links.newToken = func() (string, error) { return "", errors.New("no entropy") }

	_, _, err := env.links.FolderLink(context.Background(), 1)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trips, err := env.folders.Select(ctx, 1, "Trips")
	require.NoError(t, err)
	res, err := env.files.Ingest(ctx, 1, submission(models.KindPhoto, "a.jpg"))
	require.NoError(t, err)
	link, _, err := env.links.FolderLink(ctx, 1)
	require.NoError(t, err)
	token := tokenFromLink(t, link)

	t.Run("file by id", func(t *testing.T) {
		r, err := env.links.Resolve(ctx, 99, StartRequest{Kind: StartFile, ID: res.File.ID})
		require.NoError(t, err)
		assert.Equal(t, "a.jpg", r.File.FileName)
	})

	t.Run("unknown file", func(t *testing.T) {
		_, err := env.links.Resolve(ctx, 99, StartRequest{Kind: StartFile, ID: 12345})
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("token", func(t *testing.T) {
		r, err := env.links.Resolve(ctx, 99, StartRequest{Kind: StartFolderByToken, Token: token})
		require.NoError(t, err)
		assert.Equal(t, trips.ID, r.Folder.ID)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := env.links.Resolve(ctx, 99, StartRequest{Kind: StartFolderByToken, Token: "nope"})
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("legacy id by owner", func(t *testing.T) {
		r, err := env.links.Resolve(ctx, 1, StartRequest{Kind: StartFolderByID, ID: trips.ID})
		require.NoError(t, err)
		assert.Equal(t, trips.ID, r.Folder.ID)
	})

	t.Run("legacy id by stranger", func(t *testing.T) {
		_, err := env.links.Resolve(ctx, 99, StartRequest{Kind: StartFolderByID, ID: trips.ID})
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := env.links.Resolve(ctx, 99, ParseStart("file12x"))
		assert.ErrorIs(t, err, common.ErrorMalformedLink)
		_, err = env.links.Resolve(ctx, 99, ParseStart(""))
		assert.ErrorIs(t, err, common.ErrorMalformedLink)
	})
}
