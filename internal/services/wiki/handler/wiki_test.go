package handler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/dbtest"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Replacing the Fuser (M428fdn)": "replacing-the-fuser-m428fdn",
		"  Toner: 58A vs 58X  ":         "toner-58a-vs-58x",
		"---":                           "",
		"Ünïcode tïtle":                 "ünïcode-tïtle",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestArticleLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := NewWikiHandler(dbtest.New(t), rdb, nil)
	ctx := context.Background()

	article, err := h.CreateArticle(ctx, ArticleRequest{
		Title: "Clearing paper jams", Content: "Open tray 2.", Category: "howto",
		Tags: []string{"jam", " "}, Published: true, Author: "ops",
	})
	require.NoError(t, err)
	assert.Equal(t, "clearing-paper-jams", article.Slug)
	assert.Len(t, article.Tags, 1)

	_, err = h.CreateArticle(ctx, ArticleRequest{Title: "Clearing Paper Jams!"})
	require.ErrorIs(t, err, apperr.ErrConflict)

	got, err := h.GetArticle(ctx, "clearing-paper-jams")
	require.NoError(t, err)
	assert.Equal(t, "Open tray 2.", got.Content)
	assert.True(t, mr.Exists(WIKI_CACHE_PREFIX+"clearing-paper-jams"))

	updated, err := h.UpdateArticle(ctx, article.ID, ArticleRequest{Title: "Clearing jams", Slug: "jams", Content: "Open tray 3."})
	require.NoError(t, err)
	assert.Equal(t, "jams", updated.Slug)
	assert.False(t, mr.Exists(WIKI_CACHE_PREFIX+"clearing-paper-jams"))

	_, err = h.GetArticle(ctx, "clearing-paper-jams")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	drafts, err := h.ListArticles(ctx, ArticleFilter{PublishedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, drafts)

	all, err := h.ListArticles(ctx, ArticleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, h.DeleteArticle(ctx, article.ID))
	require.ErrorIs(t, h.DeleteArticle(ctx, article.ID), apperr.ErrNotFound)
}

func TestCreateArticle_UnknownModel(t *testing.T) {
	h := NewWikiHandler(dbtest.New(t), nil, nil)
	missing := int64(5)

	_, err := h.CreateArticle(context.Background(), ArticleRequest{Title: "Orphan", PrinterModelID: &missing})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.CreateArticle(context.Background(), ArticleRequest{Title: "  "})
	require.ErrorIs(t, err, apperr.ErrValidation)
}
