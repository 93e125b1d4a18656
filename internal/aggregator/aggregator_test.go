package aggregator

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaza-net/plaza/internal/entities"
	"github.com/plaza-net/plaza/internal/storage"
	"github.com/plaza-net/plaza/internal/storage/mock"
)

func TestAggregator_EnrichPosts_anonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	posts := []*entities.Post{{ID: 1}, {ID: 2}}

	s.EXPECT().GetPostStats(gomock.Any(), int64(1), int64(2)).Return(map[int64]storage.PostStats{
		1: {Comments: 3, Likes: 5},
	}, nil)

	vv, err := New(s).EnrichPosts(context.Background(), posts, nil)
	require.NoError(t, err)
	require.Len(t, vv, 2)

	assert.EqualValues(t, 3, vv[0].CommentsCount)
	assert.EqualValues(t, 5, vv[0].LikesCount)
	assert.Nil(t, vv[0].Liked)
	assert.Nil(t, vv[0].Favorited)

	// posts with no stats rows default to zero
	assert.Zero(t, vv[1].CommentsCount)
	assert.Zero(t, vv[1].LikesCount)
	assert.Nil(t, vv[1].Liked)
}

func TestAggregator_EnrichPosts_authenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	viewer := &entities.Caller{ID: 7, Username: "viewer"}
	posts := []*entities.Post{{ID: 1}, {ID: 2}}

	s.EXPECT().GetPostStats(gomock.Any(), int64(1), int64(2)).Return(map[int64]storage.PostStats{
		1: {Comments: 1, Likes: 1},
		2: {Comments: 0, Likes: 2},
	}, nil)
	s.EXPECT().GetPostFlags(gomock.Any(), int64(7), int64(1), int64(2)).Return(map[int64]storage.PostFlags{
		1: {Liked: true, Favorited: false},
		2: {Liked: false, Favorited: true},
	}, nil)

	vv, err := New(s).EnrichPosts(context.Background(), posts, viewer)
	require.NoError(t, err)
	require.Len(t, vv, 2)

	require.NotNil(t, vv[0].Liked)
	require.NotNil(t, vv[0].Favorited)
	assert.True(t, *vv[0].Liked)
	assert.False(t, *vv[0].Favorited)

	require.NotNil(t, vv[1].Liked)
	require.NotNil(t, vv[1].Favorited)
	assert.False(t, *vv[1].Liked)
	assert.True(t, *vv[1].Favorited)
}

func TestAggregator_EnrichPosts_empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	vv, err := New(s).EnrichPosts(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, vv)
}

func TestAggregator_EnrichPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().GetPostStats(gomock.Any(), int64(9)).Return(map[int64]storage.PostStats{
		9: {Comments: 2, Likes: 4},
	}, nil)

	v, err := New(s).EnrichPost(context.Background(), &entities.Post{ID: 9, Title: "title"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "title", v.Title)
	assert.EqualValues(t, 2, v.CommentsCount)
	assert.EqualValues(t, 4, v.LikesCount)
}
