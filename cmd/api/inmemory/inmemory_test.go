package inmemory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/books-isbn-service/cmd/api/book"
	"github.com/books-isbn-service/cmd/api/inmemory"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

func newStore(t *testing.T) *inmemory.InMemoryStore {
	t.Helper()
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func testBook() book.Book {
	return book.Book{
		ISBN:      "1234567890123",
		Title:     "Test Book",
		Author:    "Jane Doe",
		Year:      2023,
		Publisher: "Test Publisher",
	}
}

func TestCreateBook(t *testing.T) {
	store := newStore(t)

	t.Run("creates a book without errors", func(t *testing.T) {
		is := is.New(t)

		newBook, err := store.CreateBook(ctx, testBook())
		is.NoErr(err)
		is.Equal(newBook, testBook())
	})

	t.Run("creating the same isbn twice is a conflict", func(t *testing.T) {
		is := is.New(t)

		duplicate := testBook()
		duplicate.Title = "Another Title"
		_, err := store.CreateBook(ctx, duplicate)
		is.True(errors.Is(err, book.ErrConflict))

		stored, err := store.GetBookByISBN(ctx, duplicate.ISBN)
		is.NoErr(err)
		is.Equal(stored.Title, "Test Book")
	})

	t.Run("concurrent creates of one isbn store it once", func(t *testing.T) {
		is := is.New(t)

		b := testBook()
		b.ISBN = "5555555555555"

		var wg sync.WaitGroup
		var mu sync.Mutex
		created, conflicts := 0, 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.CreateBook(ctx, b)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case errors.Is(err, book.ErrConflict):
					conflicts++
				}
			}()
		}
		wg.Wait()

		is.Equal(created, 1)
		is.Equal(conflicts, 19)
	})
}

func TestGetBookByISBN(t *testing.T) {
	store := newStore(t)

	t.Run("round trips and is idempotent", func(t *testing.T) {
		is := is.New(t)

		_, err := store.CreateBook(ctx, testBook())
		is.NoErr(err)

		first, err := store.GetBookByISBN(ctx, testBook().ISBN)
		is.NoErr(err)
		second, err := store.GetBookByISBN(ctx, testBook().ISBN)
		is.NoErr(err)
		is.Equal(first, testBook())
		is.Equal(first, second)
	})

	t.Run("an unknown isbn is not found", func(t *testing.T) {
		is := is.New(t)

		_, err := store.GetBookByISBN(ctx, "9999999999999")
		is.True(errors.Is(err, book.ErrNotFound))
	})
}

func TestListBooks(t *testing.T) {
	store := newStore(t)
	is := is.New(t)

	books, err := store.ListBooks(ctx)
	is.NoErr(err)
	is.True(books != nil)
	is.Equal(len(books), 0)

	want := []book.Book{}
	for i := 3; i > 0; i-- {
		b := testBook()
		b.ISBN = fmt.Sprintf("000000000000%d", i)
		_, err := store.CreateBook(ctx, b)
		is.NoErr(err)
		want = append([]book.Book{b}, want...)
	}

	books, err = store.ListBooks(ctx)
	is.NoErr(err)
	is.Equal(books, want)
}

func TestUpdateBook(t *testing.T) {
	store := newStore(t)

	t.Run("replaces every mutable field", func(t *testing.T) {
		is := is.New(t)

		_, err := store.CreateBook(ctx, testBook())
		is.NoErr(err)

		replacement := book.Book{
			ISBN:      testBook().ISBN,
			Title:     "Updated Book Title",
			Author:    "Jane Doe Updated",
			Year:      2024,
			Publisher: "Updated Publisher",
		}
		updated, err := store.UpdateBook(ctx, testBook().ISBN, replacement)
		is.NoErr(err)
		is.Equal(updated, replacement)

		fetched, err := store.GetBookByISBN(ctx, testBook().ISBN)
		is.NoErr(err)
		is.Equal(fetched, replacement)
	})

	t.Run("the isbn key never changes", func(t *testing.T) {
		is := is.New(t)

		entry := testBook()
		entry.ISBN = "7777777777777"
		updated, err := store.UpdateBook(ctx, testBook().ISBN, entry)
		is.NoErr(err)
		is.Equal(updated.ISBN, testBook().ISBN)

		_, err = store.GetBookByISBN(ctx, "7777777777777")
		is.True(errors.Is(err, book.ErrNotFound))
	})

	t.Run("updating an unknown isbn is not found", func(t *testing.T) {
		is := is.New(t)

		_, err := store.UpdateBook(ctx, "9999999999999", testBook())
		is.True(errors.Is(err, book.ErrNotFound))
	})
}

func TestDeleteBook(t *testing.T) {
	store := newStore(t)
	is := is.New(t)

	_, err := store.CreateBook(ctx, testBook())
	is.NoErr(err)

	err = store.DeleteBook(ctx, testBook().ISBN)
	is.NoErr(err)

	// Deletion is terminal.
	_, err = store.GetBookByISBN(ctx, testBook().ISBN)
	is.True(errors.Is(err, book.ErrNotFound))
	err = store.DeleteBook(ctx, testBook().ISBN)
	is.True(errors.Is(err, book.ErrNotFound))

	// The isbn can be reused afterwards.
	_, err = store.CreateBook(ctx, testBook())
	is.NoErr(err)
}

func TestPing(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	is.NoErr(store.Ping(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	is.True(errors.Is(store.Ping(cancelled), context.Canceled))
}
