package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/metrics"
	"github.com/Clark-Hu/book-review-api/internal/repository"
	"github.com/Clark-Hu/book-review-api/internal/store"
	"github.com/Clark-Hu/book-review-api/internal/testutil"
)

type testEnv struct {
	ctx     context.Context
	pool    *pgxpool.Pool
	repo    *repository.Repository
	metrics *metrics.Metrics
	svc     *Service
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	pool := testutil.NewPool(t, "books_test_service")
	repo := repository.NewWithPool(pool)
	m := metrics.New()
	return &testEnv{
		ctx:     context.Background(),
		pool:    pool,
		repo:    repo,
		metrics: m,
		svc:     New(store.NewWithPool(pool, nil), repo, m, nil),
	}
}

func strPtr(s string) *string { return &s }

func (env *testEnv) book(t testing.TB, isbn string) domain.Book {
	t.Helper()
	book, err := env.svc.CreateBook(env.ctx, domain.BookFields{
		Title:  "The Word for World Is Forest",
		ISBN:   isbn,
		Author: []string{"Ursula K. Le Guin"},
	})
	require.NoError(t, err)
	return book
}

func (env *testEnv) comment(t testing.TB, bookID int64, user string, rating *string) domain.Comment {
	t.Helper()
	c, err := env.svc.CreateComment(env.ctx, CreateCommentParams{
		ResourceID: bookID,
		UserID:     user,
		Rating:     rating,
		Content:    "comment by " + user,
	})
	require.NoError(t, err)
	return c
}

func (env *testEnv) aggregate(t testing.TB, bookID int64) *domain.Aggregate {
	t.Helper()
	book, err := env.repo.Books.GetAnyByID(env.ctx, bookID)
	require.NoError(t, err)
	return book.Aggregate
}

func (env *testEnv) commentCount(t testing.TB, bookID int64) int {
	t.Helper()
	var n int
	require.NoError(t, env.pool.QueryRow(env.ctx,
		`SELECT count(*) FROM book_comments WHERE book_id = $1`, bookID).Scan(&n))
	return n
}

func TestCommentLifecycleScenarios(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324641")
	require.Nil(t, env.aggregate(t, book.ID))

	first := env.comment(t, book.ID, "alice", strPtr("4.0"))
	require.Equal(t, &domain.Aggregate{TotalScore: 8, Number: 1}, env.aggregate(t, book.ID))

	second := env.comment(t, book.ID, "bob", strPtr("3"))
	agg := env.aggregate(t, book.ID)
	require.Equal(t, &domain.Aggregate{TotalScore: 14, Number: 2}, agg)
	require.Equal(t, "3.5", agg.Mean().String())

	_, err := env.svc.UpdateComment(env.ctx, UpdateCommentParams{
		ResourceID: book.ID,
		CommentID:  first.ID,
		Rating:     RatingChange{Set: true, Value: strPtr("5.0")},
	})
	require.NoError(t, err)
	agg = env.aggregate(t, book.ID)
	require.Equal(t, &domain.Aggregate{TotalScore: 16, Number: 2}, agg)
	require.Equal(t, "4.0", agg.Mean().String())

	require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, first.ID))
	agg = env.aggregate(t, book.ID)
	require.Equal(t, &domain.Aggregate{TotalScore: 6, Number: 1}, agg)
	require.Equal(t, "3.0", agg.Mean().String())

	require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, second.ID))
	require.Nil(t, env.aggregate(t, book.ID))

	stored, err := env.repo.Books.GetByID(env.ctx, book.ID)
	require.NoError(t, err)
	require.Nil(t, stored.Rating())
	require.Nil(t, stored.RatingNumber())
}

func TestCreateCommentInvalidRatingLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324642")
	env.comment(t, book.ID, "alice", strPtr("4.0"))

	for _, literal := range []string{"2.3", "5.5", "-0.5", "abc", "1e0"} {
		_, err := env.svc.CreateComment(env.ctx, CreateCommentParams{
			ResourceID: book.ID,
			UserID:     "mallory-" + literal,
			Rating:     strPtr(literal),
		})
		require.ErrorIs(t, err, ErrInvalidRating, literal)
	}

	require.Equal(t, &domain.Aggregate{TotalScore: 8, Number: 1}, env.aggregate(t, book.ID))
	require.Equal(t, 1, env.commentCount(t, book.ID))
	require.Equal(t, 5.0, promtestutil.ToFloat64(env.metrics.Mutations().WithLabelValues("create_comment", "invalid_rating")))
}

func TestCreateCommentUnrated(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324643")

	c := env.comment(t, book.ID, "alice", nil)
	require.Nil(t, c.Rating)
	require.Nil(t, env.aggregate(t, book.ID))

	env.comment(t, book.ID, "bob", strPtr("2.5"))
	require.Equal(t, &domain.Aggregate{TotalScore: 5, Number: 1}, env.aggregate(t, book.ID))

	require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, c.ID))
	require.Equal(t, &domain.Aggregate{TotalScore: 5, Number: 1}, env.aggregate(t, book.ID))
}

func TestDuplicateCommentRollsBackAggregate(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324644")
	env.comment(t, book.ID, "alice", strPtr("4.0"))

	_, err := env.svc.CreateComment(env.ctx, CreateCommentParams{
		ResourceID: book.ID,
		UserID:     "alice",
		Rating:     strPtr("1.0"),
	})
	require.ErrorIs(t, err, ErrDuplicateComment)
	require.Equal(t, &domain.Aggregate{TotalScore: 8, Number: 1}, env.aggregate(t, book.ID))
	require.Equal(t, 1, env.commentCount(t, book.ID))
	require.Equal(t, 1.0, promtestutil.ToFloat64(env.metrics.Mutations().WithLabelValues("create_comment", "conflict")))
}

func TestRecommentAfterSoftDelete(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324645")
	c := env.comment(t, book.ID, "alice", strPtr("4.0"))
	require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, c.ID))

	env.comment(t, book.ID, "alice", strPtr("2.0"))
	require.Equal(t, &domain.Aggregate{TotalScore: 4, Number: 1}, env.aggregate(t, book.ID))
}

func TestUpdateCommentRatingChanges(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324646")
	rated := env.comment(t, book.ID, "alice", strPtr("4.0"))
	unrated := env.comment(t, book.ID, "bob", nil)

	updated, err := env.svc.UpdateComment(env.ctx, UpdateCommentParams{
		ResourceID: book.ID,
		CommentID:  rated.ID,
		Content:    strPtr("changed my mind about the prose"),
	})
	require.NoError(t, err)
	require.Equal(t, "changed my mind about the prose", updated.Content)
	require.Equal(t, "4.0", updated.Rating.String())
	require.Equal(t, &domain.Aggregate{TotalScore: 8, Number: 1}, env.aggregate(t, book.ID))

	_, err = env.svc.UpdateComment(env.ctx, UpdateCommentParams{
		ResourceID: book.ID,
		CommentID:  unrated.ID,
		Rating:     RatingChange{Set: true, Value: strPtr("1.5")},
	})
	require.NoError(t, err)
	require.Equal(t, &domain.Aggregate{TotalScore: 11, Number: 2}, env.aggregate(t, book.ID))

	updated, err = env.svc.UpdateComment(env.ctx, UpdateCommentParams{
		ResourceID: book.ID,
		CommentID:  rated.ID,
		Rating:     RatingChange{Set: true},
	})
	require.NoError(t, err)
	require.Nil(t, updated.Rating)
	require.Equal(t, &domain.Aggregate{TotalScore: 3, Number: 1}, env.aggregate(t, book.ID))

	_, err = env.svc.UpdateComment(env.ctx, UpdateCommentParams{
		ResourceID: book.ID,
		CommentID:  unrated.ID,
		Rating:     RatingChange{Set: true, Value: strPtr("4.25")},
	})
	require.ErrorIs(t, err, ErrInvalidRating)
	require.Equal(t, &domain.Aggregate{TotalScore: 3, Number: 1}, env.aggregate(t, book.ID))
}

func TestUpdateCommentUserConflictRollsBack(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324647")
	env.comment(t, book.ID, "alice", strPtr("4.0"))
	bob := env.comment(t, book.ID, "bob", strPtr("1.0"))

	_, err := env.svc.UpdateComment(env.ctx, UpdateCommentParams{
		ResourceID: book.ID,
		CommentID:  bob.ID,
		UserID:     strPtr("alice"),
		Rating:     RatingChange{Set: true, Value: strPtr("5.0")},
	})
	require.ErrorIs(t, err, ErrDuplicateComment)
	require.Equal(t, &domain.Aggregate{TotalScore: 10, Number: 2}, env.aggregate(t, book.ID))

	got, err := env.svc.GetComment(env.ctx, book.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", got.UserID)
	require.Equal(t, "1.0", got.Rating.String())
}

func TestUpdateCommentNotFound(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324648")
	other := env.book(t, "9780765324649")
	c := env.comment(t, book.ID, "alice", strPtr("4.0"))

	_, err := env.svc.UpdateComment(env.ctx, UpdateCommentParams{ResourceID: other.ID, CommentID: c.ID, Content: strPtr("x")})
	require.ErrorIs(t, err, ErrCommentNotFound)

	_, err = env.svc.UpdateComment(env.ctx, UpdateCommentParams{ResourceID: 987654, CommentID: c.ID, Content: strPtr("x")})
	require.ErrorIs(t, err, ErrResourceNotFound)

	require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, c.ID))
	_, err = env.svc.UpdateComment(env.ctx, UpdateCommentParams{
		ResourceID: book.ID,
		CommentID:  c.ID,
		Rating:     RatingChange{Set: true, Value: strPtr("1.0")},
	})
	require.ErrorIs(t, err, ErrCommentNotFound)
	require.Nil(t, env.aggregate(t, book.ID))
}

func TestSoftDeleteCommentTwice(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324650")
	c := env.comment(t, book.ID, "alice", strPtr("4.0"))
	env.comment(t, book.ID, "bob", strPtr("2.0"))

	require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, c.ID))
	require.ErrorIs(t, env.svc.SoftDeleteComment(env.ctx, book.ID, c.ID), ErrCommentNotFound)
	require.Equal(t, &domain.Aggregate{TotalScore: 4, Number: 1}, env.aggregate(t, book.ID))

	_, err := env.svc.GetComment(env.ctx, book.ID, c.ID)
	require.ErrorIs(t, err, ErrCommentNotFound)
}

func TestHardDeleteComment(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324651")
	alice := env.comment(t, book.ID, "alice", strPtr("4.0"))
	bob := env.comment(t, book.ID, "bob", strPtr("2.0"))

	require.NoError(t, env.svc.HardDeleteComment(env.ctx, book.ID, alice.ID))
	require.Equal(t, &domain.Aggregate{TotalScore: 4, Number: 1}, env.aggregate(t, book.ID))
	require.ErrorIs(t, env.svc.HardDeleteComment(env.ctx, book.ID, alice.ID), ErrCommentNotFound)

	require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, bob.ID))
	require.Nil(t, env.aggregate(t, book.ID))
	require.NoError(t, env.svc.HardDeleteComment(env.ctx, book.ID, bob.ID))
	require.Nil(t, env.aggregate(t, book.ID))
	require.Equal(t, 0, env.commentCount(t, book.ID))
}

func TestCommentsOnSoftDeletedBook(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324652")
	c := env.comment(t, book.ID, "alice", strPtr("3.0"))
	require.NoError(t, env.svc.SoftDeleteBook(env.ctx, book.ID))

	_, err := env.svc.CreateComment(env.ctx, CreateCommentParams{ResourceID: book.ID, UserID: "bob", Rating: strPtr("1.0")})
	require.ErrorIs(t, err, ErrResourceNotFound)
	require.ErrorIs(t, env.svc.SoftDeleteComment(env.ctx, book.ID, c.ID), ErrResourceNotFound)
	_, err = env.svc.ListComments(env.ctx, book.ID, repository.Page{})
	require.ErrorIs(t, err, ErrResourceNotFound)

	require.NoError(t, env.svc.HardDeleteComment(env.ctx, book.ID, c.ID))
	require.Nil(t, env.aggregate(t, book.ID))
}

func TestConcurrentCreateComments(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324653")

	const writers = 24
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	wantTotal := 0
	for i := 0; i < writers; i++ {
		halves := i % 11
		wantTotal += halves
		wg.Add(1)
		go func(i, halves int) {
			defer wg.Done()
			literal := domain.Rating(halves).String()
			_, err := env.svc.CreateComment(env.ctx, CreateCommentParams{
				ResourceID: book.ID,
				UserID:     fmt.Sprintf("reader-%02d", i),
				Rating:     &literal,
			})
			errs <- err
		}(i, halves)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, &domain.Aggregate{TotalScore: wantTotal, Number: writers}, env.aggregate(t, book.ID))
	_, drifted, err := env.svc.RecomputeAggregate(env.ctx, book.ID)
	require.NoError(t, err)
	require.False(t, drifted)
}

func TestConcurrentMixedMutations(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324655")

	const seeded, fresh = 32, 12
	comments := make([]domain.Comment, seeded)
	for i := range comments {
		literal := domain.Rating(i % 11).String()
		comments[i] = env.comment(t, book.ID, fmt.Sprintf("seed-%02d", i), &literal)
	}

	want := domain.Aggregate{}
	var wg sync.WaitGroup
	errs := make(chan error, seeded+fresh)
	for i, c := range comments {
		var op func() error
		switch i % 4 {
		case 0:
			halves := (i + 3) % 11
			want.TotalScore += halves
			want.Number++
			literal := domain.Rating(halves).String()
			op = func() error {
				_, err := env.svc.UpdateComment(env.ctx, UpdateCommentParams{
					ResourceID: book.ID,
					CommentID:  c.ID,
					Rating:     RatingChange{Set: true, Value: &literal},
				})
				return err
			}
		case 1:
			op = func() error { return env.svc.SoftDeleteComment(env.ctx, book.ID, c.ID) }
		case 2:
			op = func() error { return env.svc.HardDeleteComment(env.ctx, book.ID, c.ID) }
		default:
			op = func() error {
				_, err := env.svc.UpdateComment(env.ctx, UpdateCommentParams{
					ResourceID: book.ID,
					CommentID:  c.ID,
					Rating:     RatingChange{Set: true},
				})
				return err
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- op()
		}()
	}
	for j := 0; j < fresh; j++ {
		halves := (j * 7) % 11
		want.TotalScore += halves
		want.Number++
		literal := domain.Rating(halves).String()
		user := fmt.Sprintf("fresh-%02d", j)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.CreateComment(env.ctx, CreateCommentParams{ResourceID: book.ID, UserID: user, Rating: &literal})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, &want, env.aggregate(t, book.ID))
	agg, drifted, err := env.svc.RecomputeAggregate(env.ctx, book.ID)
	require.NoError(t, err)
	require.False(t, drifted)
	require.Equal(t, &want, agg)
}

func TestRandomHistoryMatchesRecompute(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324654")
	rnd := rand.New(rand.NewSource(7))
	users := []string{"ann", "ben", "cat", "dan", "eve"}
	live := map[string]domain.Comment{}

	randomRating := func() *string {
		if rnd.Intn(4) == 0 {
			return nil
		}
		literal := domain.Rating(rnd.Intn(11)).String()
		return &literal
	}

	for step := 0; step < 120; step++ {
		user := users[rnd.Intn(len(users))]
		c, exists := live[user]
		switch {
		case !exists:
			live[user] = env.comment(t, book.ID, user, randomRating())
		case rnd.Intn(3) == 0:
			updated, err := env.svc.UpdateComment(env.ctx, UpdateCommentParams{
				ResourceID: book.ID,
				CommentID:  c.ID,
				Rating:     RatingChange{Set: true, Value: randomRating()},
			})
			require.NoError(t, err)
			live[user] = updated
		case rnd.Intn(2) == 0:
			require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, c.ID))
			delete(live, user)
		default:
			require.NoError(t, env.svc.HardDeleteComment(env.ctx, book.ID, c.ID))
			delete(live, user)
		}

		fresh, drifted, err := env.svc.RecomputeAggregate(env.ctx, book.ID)
		require.NoError(t, err)
		require.False(t, drifted, "step %d", step)
		require.Equal(t, fresh, env.aggregate(t, book.ID), "step %d", step)
	}
}

func TestRecomputeAggregateRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324655")
	env.comment(t, book.ID, "alice", strPtr("4.5"))
	env.comment(t, book.ID, "bob", strPtr("0"))

	require.NoError(t, env.repo.Books.SaveAggregate(env.ctx, book.ID, &domain.Aggregate{TotalScore: 2, Number: 5}))

	fresh, drifted, err := env.svc.RecomputeAggregate(env.ctx, book.ID)
	require.NoError(t, err)
	require.True(t, drifted)
	require.Equal(t, &domain.Aggregate{TotalScore: 9, Number: 2}, fresh)
	require.Equal(t, fresh, env.aggregate(t, book.ID))

	_, _, err = env.svc.RecomputeAggregate(env.ctx, 424242)
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestListAndGetComments(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324656")
	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, env.comment(t, book.ID, fmt.Sprintf("user-%d", i), nil).ID)
	}
	require.NoError(t, env.svc.SoftDeleteComment(env.ctx, book.ID, ids[1]))

	page, err := env.svc.ListComments(env.ctx, book.ID, repository.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, ids[2], page.Items[0].ID)
	require.Equal(t, ids[0], page.Items[1].ID)

	detail, err := env.svc.GetBook(env.ctx, book.ID, 1)
	require.NoError(t, err)
	require.Equal(t, book.ID, detail.Book.ID)
	require.Len(t, detail.Comments, 1)
}

func TestBookISBNRules(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324657")

	_, err := env.svc.CreateBook(env.ctx, domain.BookFields{Title: "Again", ISBN: "9780765324657"})
	require.ErrorIs(t, err, ErrDuplicateISBN)

	require.NoError(t, env.svc.SoftDeleteBook(env.ctx, book.ID))
	require.ErrorIs(t, env.svc.SoftDeleteBook(env.ctx, book.ID), ErrResourceNotFound)

	_, err = env.svc.CreateBook(env.ctx, domain.BookFields{Title: "Again", ISBN: "9780765324657"})
	require.ErrorIs(t, err, ErrISBNHeldByDeleted)

	require.NoError(t, env.svc.HardDeleteBook(env.ctx, book.ID))
	again, err := env.svc.CreateBook(env.ctx, domain.BookFields{Title: "Again", ISBN: "9780765324657"})
	require.NoError(t, err)
	require.Nil(t, again.Aggregate)
}

func TestCreateBookValidation(t *testing.T) {
	env := newTestEnv(t)
	month := 13
	pages := -1
	cases := []domain.BookFields{
		{ISBN: "1"},
		{Title: "  ", ISBN: "2"},
		{Title: "No isbn"},
		{Title: "Bad month", ISBN: "3", PubMonth: &month},
		{Title: "Bad pages", ISBN: "4", Pages: &pages},
		{Title: "Bad other", ISBN: "5", Other: []byte(`{`)},
	}
	for _, fields := range cases {
		_, err := env.svc.CreateBook(env.ctx, fields)
		require.ErrorIs(t, err, ErrInvalidInput, fields.Title)
	}
}

func TestUpdateBook(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324658")
	other := env.book(t, "9780765324659")
	env.comment(t, book.ID, "alice", strPtr("4.0"))

	updated, err := env.svc.UpdateBook(env.ctx, book.ID, BookPatch{
		Subtitle: strPtr("A Novel"),
		Author:   &[]string{"Ursula K. Le Guin", "Unknown"},
	})
	require.NoError(t, err)
	require.Equal(t, "A Novel", updated.Subtitle)
	require.Equal(t, book.Title, updated.Title)
	require.Len(t, updated.Author, 2)
	require.Equal(t, &domain.Aggregate{TotalScore: 8, Number: 1}, updated.Aggregate)

	_, err = env.svc.UpdateBook(env.ctx, book.ID, BookPatch{ISBN: strPtr(other.ISBN)})
	require.ErrorIs(t, err, ErrDuplicateISBN)

	_, err = env.svc.UpdateBook(env.ctx, book.ID, BookPatch{Title: strPtr("")})
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, env.svc.SoftDeleteBook(env.ctx, other.ID))
	_, err = env.svc.UpdateBook(env.ctx, other.ID, BookPatch{Title: strPtr("gone")})
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestHardDeleteBookCascades(t *testing.T) {
	env := newTestEnv(t)
	book := env.book(t, "9780765324660")
	env.comment(t, book.ID, "alice", strPtr("4.0"))
	require.NoError(t, env.svc.SoftDeleteBook(env.ctx, book.ID))

	require.NoError(t, env.svc.HardDeleteBook(env.ctx, book.ID))
	require.Equal(t, 0, env.commentCount(t, book.ID))
	require.ErrorIs(t, env.svc.HardDeleteBook(env.ctx, book.ID), ErrResourceNotFound)
}

func TestClassify(t *testing.T) {
	kind := domain.BookKind
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"live comment unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: kind.LiveUniqueKey}, ErrDuplicateComment},
		{"isbn unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "books_isbn_key"}, ErrDuplicateISBN},
		{"rating check", &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "book_comments_rating_upperbound"}, ErrRatingOutOfRange},
		{"other check", &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "books_pages_check"}, ErrInvalidInput},
		{"other unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "books_pkey"}, ErrInternalPersistence},
		{"connection", fmt.Errorf("dial tcp: connection refused"), ErrInternalPersistence},
		{"already classified", fmt.Errorf("wrapped: %w", ErrCommentNotFound), ErrCommentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, classify(tc.err, kind), tc.want)
		})
	}
	require.NoError(t, classify(nil, kind))

	raw := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	var pgErr *pgconn.PgError
	require.ErrorAs(t, classify(raw, kind), &pgErr)
}

func BenchmarkCreateComment(b *testing.B) {
	env := newTestEnv(b)
	book := env.book(b, "9780765324661")
	rating := "3.5"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.svc.CreateComment(env.ctx, CreateCommentParams{
			ResourceID: book.ID,
			UserID:     fmt.Sprintf("bench-%d", i),
			Rating:     &rating,
		}); err != nil {
			b.Fatal(err)
		}
	}
}
