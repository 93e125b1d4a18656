// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/plaza-net/plaza/internal/entities"
	"github.com/plaza-net/plaza/internal/storage"
)

var log = logrus.WithField("layer", "storage").WithField("package", "postgres")
var errBeginCalledWithinTx = errors.New("can not run InTx within tx")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type pg struct {
	ext sqlx.ExtContext
}

type userDTO struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Admin        bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
}

type postDTO struct {
	ID            int64     `db:"id"`
	Owner         int64     `db:"owner_id"`
	OwnerUsername string    `db:"owner_username"`
	Category      int64     `db:"category_id"`
	CategoryName  string    `db:"category_name"`
	Title         string    `db:"title"`
	Body          string    `db:"body"`
	PreviewImage  string    `db:"preview_image"`
	CreatedAt     time.Time `db:"created_at"`
}

type postImageDTO struct {
	ID    int64  `db:"id"`
	Post  int64  `db:"post_id"`
	Image string `db:"image"`
}

type commentDTO struct {
	ID            int64     `db:"id"`
	Owner         int64     `db:"owner_id"`
	OwnerUsername string    `db:"owner_username"`
	Post          int64     `db:"post_id"`
	Body          string    `db:"body"`
	CreatedAt     time.Time `db:"created_at"`
}

type likeDTO struct {
	ID            int64  `db:"id"`
	Owner         int64  `db:"owner_id"`
	OwnerUsername string `db:"owner_username"`
	Post          int64  `db:"post_id"`
}

const postColumns = `
	p.id, p.owner_id, u.username AS owner_username, p.category_id, c.name AS category_name,
	p.title, p.body, p.preview_image, p.created_at`

const postJoins = `
	FROM post p
	JOIN users u ON u.id = p.owner_id
	JOIN category c ON c.id = p.category_id`

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

func (s pg) InTx(ctx context.Context, f func(s storage.Storage) error) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(pg{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s pg) Ping(ctx context.Context) error {
	var one int
	if err := sqlx.GetContext(ctx, s.ext, &one, `SELECT 1`); err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}

	return nil
}

func (s pg) CreateUser(ctx context.Context, p *storage.CreateUserParams) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, `
			INSERT INTO users(username, email, password_hash)
			VALUES($1, $2, $3)
			RETURNING id, username, email, password_hash, is_admin, created_at
		`,
		p.Username, p.Email, p.PasswordHash,
	); err != nil {
		return nil, fmt.Errorf("failed to exec: %w", translateError(err))
	}

	return toUser(&u), nil
}

func (s pg) GetUser(ctx context.Context, id int64) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, `
			SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE id = $1
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) GetCredentials(ctx context.Context, username string) (*storage.Credentials, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, `
			SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE username = $1
		`, username,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &storage.Credentials{
		UserID:       u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Admin:        u.Admin,
	}, nil
}

func (s pg) ListUsers(ctx context.Context) ([]*entities.User, error) {
	var uu []*userDTO

	if err := sqlx.SelectContext(ctx, s.ext, &uu, `
			SELECT id, username, email, password_hash, is_admin, created_at FROM users ORDER BY id
		`,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.User, len(uu))
	for i, v := range uu {
		out[i] = toUser(v)
	}

	return out, nil
}

func (s pg) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) error {
	if _, err := s.ext.ExecContext(ctx, `
			INSERT INTO session(id, user_id, expires_at) VALUES($1, $2, $3)
		`,
		id, userID, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to exec: %w", translateError(err))
	}

	return nil
}

func (s pg) GetSessionUser(ctx context.Context, id string) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, `
			SELECT u.id, u.username, u.email, u.password_hash, u.is_admin, u.created_at
			FROM session s
			JOIN users u ON u.id = s.user_id
			WHERE s.id = $1 AND s.expires_at > now()
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) DeleteSession(ctx context.Context, id string) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM session WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) GetCategory(ctx context.Context, id int64) (*entities.Category, error) {
	var c entities.Category

	if err := sqlx.GetContext(ctx, s.ext, &c, `SELECT id, name FROM category WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &c, nil
}

func (s pg) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	var cc []*entities.Category

	if err := sqlx.SelectContext(ctx, s.ext, &cc, `SELECT id, name FROM category ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return cc, nil
}

func (s pg) CreatePost(ctx context.Context, p *storage.CreatePostParams) (*entities.Post, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO post(owner_id, category_id, title, body, preview_image)
			VALUES($1, $2, $3, $4, $5)
			RETURNING id
		`,
		p.Owner, p.Category, p.Title, p.Body, p.PreviewImage,
	); err != nil {
		return nil, fmt.Errorf("failed to exec: %w", translateError(err))
	}

	return s.GetPost(ctx, id)
}

func (s pg) AddPostImage(ctx context.Context, postID int64, image string) (*entities.PostImage, error) {
	var i postImageDTO

	if err := sqlx.GetContext(ctx, s.ext, &i, `
			INSERT INTO post_image(post_id, image) VALUES($1, $2)
			RETURNING id, post_id, image
		`,
		postID, image,
	); err != nil {
		return nil, fmt.Errorf("failed to exec: %w", translateError(err))
	}

	return &entities.PostImage{ID: i.ID, Post: i.Post, Image: i.Image}, nil
}

func (s pg) GetPost(ctx context.Context, id int64) (*entities.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p,
		`SELECT`+postColumns+postJoins+` WHERE p.id = $1`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	var ii []*postImageDTO
	if err := sqlx.SelectContext(ctx, s.ext, &ii, `
			SELECT id, post_id, image FROM post_image WHERE post_id = $1 ORDER BY id
		`, id,
	); err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}

	out := toPost(&p)
	out.Images = make([]entities.PostImage, len(ii))
	for i, v := range ii {
		out.Images[i] = entities.PostImage{ID: v.ID, Post: v.Post, Image: v.Image}
	}

	return out, nil
}

func (s pg) UpdatePost(ctx context.Context, id int64, p *storage.UpdatePostParams) (*entities.Post, error) {
	res, err := s.ext.ExecContext(ctx, `
			UPDATE post SET
				title = COALESCE($2, title),
				body = COALESCE($3, body),
				category_id = COALESCE($4, category_id),
				preview_image = COALESCE($5, preview_image)
			WHERE id = $1
		`,
		id, p.Title, p.Body, p.Category, p.PreviewImage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to exec: %w", translateError(err))
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return nil, storage.ErrNotFound
	}

	return s.GetPost(ctx, id)
}

func (s pg) DeletePost(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM post WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*entities.Post, error) {
	q := `SELECT` + postColumns + postJoins + ` WHERE TRUE`
	args := make([]interface{}, 0, 5)

	if p.Search != nil {
		args = append(args, "%"+*p.Search+"%")
		q += fmt.Sprintf(` AND (p.title ILIKE $%d OR p.body ILIKE $%d)`, len(args), len(args))
	}

	if p.Owner != nil {
		args = append(args, *p.Owner)
		q += fmt.Sprintf(` AND p.owner_id = $%d`, len(args))
	}

	if p.Category != nil {
		args = append(args, *p.Category)
		q += fmt.Sprintf(` AND p.category_id = $%d`, len(args))
	}

	args = append(args, p.Limit)
	q += fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d`, len(args))
	args = append(args, p.Offset)
	q += fmt.Sprintf(` OFFSET $%d`, len(args))

	var pp []*postDTO
	if err := sqlx.SelectContext(ctx, s.ext, &pp, q, args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Post, len(pp))
	for i, v := range pp {
		out[i] = toPost(v)
	}

	return out, nil
}

func (s pg) CreateComment(ctx context.Context, p *storage.CreateCommentParams) (*entities.Comment, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO comment(owner_id, post_id, body) VALUES($1, $2, $3)
			RETURNING id
		`,
		p.Owner, p.Post, p.Body,
	); err != nil {
		return nil, fmt.Errorf("failed to exec: %w", translateError(err))
	}

	return s.GetComment(ctx, id)
}

func (s pg) GetComment(ctx context.Context, id int64) (*entities.Comment, error) {
	var c commentDTO

	if err := sqlx.GetContext(ctx, s.ext, &c, `
			SELECT c.id, c.owner_id, u.username AS owner_username, c.post_id, c.body, c.created_at
			FROM comment c
			JOIN users u ON u.id = c.owner_id
			WHERE c.id = $1
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toComment(&c), nil
}

func (s pg) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM comment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListComments(ctx context.Context, p *storage.ListCommentsParams) ([]*entities.Comment, error) {
	q := `
		SELECT c.id, c.owner_id, u.username AS owner_username, c.post_id, c.body, c.created_at
		FROM comment c
		JOIN users u ON u.id = c.owner_id
		WHERE TRUE`
	args := make([]interface{}, 0, 2)

	if p.Post != nil {
		args = append(args, *p.Post)
		q += fmt.Sprintf(` AND c.post_id = $%d`, len(args))
	}

	if p.Owner != nil {
		args = append(args, *p.Owner)
		q += fmt.Sprintf(` AND c.owner_id = $%d`, len(args))
	}

	q += ` ORDER BY c.created_at, c.id`

	var cc []*commentDTO
	if err := sqlx.SelectContext(ctx, s.ext, &cc, q, args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Comment, len(cc))
	for i, v := range cc {
		out[i] = toComment(v)
	}

	return out, nil
}

func (s pg) CreateLike(ctx context.Context, owner, post int64) (*entities.Like, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO "like"(owner_id, post_id) VALUES($1, $2)
			RETURNING id
		`,
		owner, post,
	); err != nil {
		return nil, fmt.Errorf("failed to exec: %w", translateError(err))
	}

	return s.GetLike(ctx, id)
}

func (s pg) GetLike(ctx context.Context, id int64) (*entities.Like, error) {
	var l likeDTO

	if err := sqlx.GetContext(ctx, s.ext, &l, `
			SELECT l.id, l.owner_id, u.username AS owner_username, l.post_id
			FROM "like" l
			JOIN users u ON u.id = l.owner_id
			WHERE l.id = $1
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toLike(&l), nil
}

func (s pg) DeleteLike(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM "like" WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListLikes(ctx context.Context, p *storage.ListLikesParams) ([]*entities.Like, error) {
	q := `
		SELECT l.id, l.owner_id, u.username AS owner_username, l.post_id
		FROM "like" l
		JOIN users u ON u.id = l.owner_id
		WHERE TRUE`
	args := make([]interface{}, 0, 2)

	if p.Post != nil {
		args = append(args, *p.Post)
		q += fmt.Sprintf(` AND l.post_id = $%d`, len(args))
	}

	if p.Owner != nil {
		args = append(args, *p.Owner)
		q += fmt.Sprintf(` AND l.owner_id = $%d`, len(args))
	}

	q += ` ORDER BY l.id`

	var ll []*likeDTO
	if err := sqlx.SelectContext(ctx, s.ext, &ll, q, args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Like, len(ll))
	for i, v := range ll {
		out[i] = toLike(v)
	}

	return out, nil
}

func (s pg) CreateFavorite(ctx context.Context, owner, post int64) error {
	if _, err := s.ext.ExecContext(ctx, `
			INSERT INTO favorite(owner_id, post_id) VALUES($1, $2)
		`,
		owner, post,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", translateError(err))
	}

	return nil
}

func (s pg) DeleteFavorite(ctx context.Context, owner, post int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM favorite WHERE owner_id = $1 AND post_id = $2`, owner, post)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListFavoritePosts(ctx context.Context, owner int64) ([]*entities.Post, error) {
	var pp []*postDTO

	if err := sqlx.SelectContext(ctx, s.ext, &pp,
		`SELECT`+postColumns+postJoins+`
			JOIN favorite f ON f.post_id = p.id
			WHERE f.owner_id = $1
			ORDER BY f.id DESC
		`, owner,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Post, len(pp))
	for i, v := range pp {
		out[i] = toPost(v)
	}

	return out, nil
}

func (s pg) GetPostStats(ctx context.Context, id ...int64) (map[int64]storage.PostStats, error) {
	if len(id) == 0 {
		return map[int64]storage.PostStats{}, nil
	}

	query, args, err := sqlx.In(`
			SELECT p.id,
				(SELECT COUNT(*) FROM comment WHERE post_id = p.id) AS comments,
				(SELECT COUNT(*) FROM "like" WHERE post_id = p.id) AS likes
			FROM post p
			WHERE p.id IN (?)
		`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var dto []struct {
		ID       int64  `db:"id"`
		Comments uint32 `db:"comments"`
		Likes    uint32 `db:"likes"`
	}

	if err := sqlx.SelectContext(ctx, s.ext, &dto, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make(map[int64]storage.PostStats, len(dto))
	for _, v := range dto {
		out[v.ID] = storage.PostStats{Comments: v.Comments, Likes: v.Likes}
	}

	return out, nil
}

func (s pg) GetPostFlags(ctx context.Context, viewer int64, id ...int64) (map[int64]storage.PostFlags, error) {
	if len(id) == 0 {
		return map[int64]storage.PostFlags{}, nil
	}

	query, args, err := sqlx.In(`
			SELECT p.id,
				EXISTS(SELECT 1 FROM "like" l WHERE l.post_id = p.id AND l.owner_id = ?) AS liked,
				EXISTS(SELECT 1 FROM favorite f WHERE f.post_id = p.id AND f.owner_id = ?) AS favorited
			FROM post p
			WHERE p.id IN (?)
		`, viewer, viewer, id)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var dto []struct {
		ID        int64 `db:"id"`
		Liked     bool  `db:"liked"`
		Favorited bool  `db:"favorited"`
	}

	if err := sqlx.SelectContext(ctx, s.ext, &dto, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make(map[int64]storage.PostFlags, len(dto))
	for _, v := range dto {
		out[v.ID] = storage.PostFlags{Liked: v.Liked, Favorited: v.Favorited}
	}

	return out, nil
}

// translateError converts pq constraint violations into storage sentinels so
// the layers above never see driver error codes.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return storage.ErrConflict
		case foreignKeyViolation:
			return storage.ErrNotFound
		}
	}

	return err
}

func toUser(u *userDTO) *entities.User {
	return &entities.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt,
	}
}

func toPost(p *postDTO) *entities.Post {
	return &entities.Post{
		ID:            p.ID,
		Owner:         p.Owner,
		OwnerUsername: p.OwnerUsername,
		Category:      p.Category,
		CategoryName:  p.CategoryName,
		Title:         p.Title,
		Body:          p.Body,
		PreviewImage:  p.PreviewImage,
		CreatedAt:     p.CreatedAt,
	}
}

func toComment(c *commentDTO) *entities.Comment {
	return &entities.Comment{
		ID:            c.ID,
		Owner:         c.Owner,
		OwnerUsername: c.OwnerUsername,
		Post:          c.Post,
		Body:          c.Body,
		CreatedAt:     c.CreatedAt,
	}
}

func toLike(l *likeDTO) *entities.Like {
	return &entities.Like{
		ID:            l.ID,
		Owner:         l.Owner,
		OwnerUsername: l.OwnerUsername,
		Post:          l.Post,
	}
}
