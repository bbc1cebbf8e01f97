package book_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/books-isbn-service/cmd/api/book"
	bookmock "github.com/books-isbn-service/cmd/api/book/mocks"
	"github.com/matryer/is"
	gomock "go.uber.org/mock/gomock"
)

var ctx context.Context = context.Background()

var testBook = book.Book{
	ISBN:      "1234567890123",
	Title:     "Test Book",
	Author:    "Jane Doe",
	Year:      2023,
	Publisher: "Test Publisher",
}

func TestListBooks(t *testing.T) {
	t.Run("lists stored books", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		s := book.NewService(mockRepo, nil)

		mockRepo.EXPECT().ListBooks(gomock.Any()).Return([]book.Book{testBook}, nil)

		books, err := s.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(books, []book.Book{testBook})
	})

	t.Run("an empty repository yields an empty, non nil list", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		s := book.NewService(mockRepo, nil)

		mockRepo.EXPECT().ListBooks(gomock.Any()).Return(nil, nil)

		books, err := s.ListBooks(ctx)
		is.NoErr(err)
		is.True(books != nil)
		is.Equal(len(books), 0)
	})

	t.Run("repository errors are returned unchanged", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		s := book.NewService(mockRepo, nil)

		repoErr := errors.New("connection refused")
		mockRepo.EXPECT().ListBooks(gomock.Any()).Return(nil, repoErr)

		_, err := s.ListBooks(ctx)
		is.True(errors.Is(err, repoErr))
	})
}

func TestGetBook(t *testing.T) {
	t.Run("returns a not found error for an unknown isbn", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		s := book.NewService(mockRepo, nil)

		mockRepo.EXPECT().GetBookByISBN(gomock.Any(), "9999999999999").Return(book.Book{}, book.ErrNotFound)

		_, err := s.GetBook(ctx, "9999999999999")
		is.True(errors.Is(err, book.ErrNotFound))
	})
}

func TestCreateBook(t *testing.T) {
	t.Run("creates a book and notifies about it", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mockNotifier := bookmock.NewMockNotifier(ctrl)
		s := book.NewService(mockRepo, mockNotifier)

		notified := make(chan book.Book, 1)
		mockRepo.EXPECT().CreateBook(gomock.Any(), testBook).Return(testBook, nil)
		mockNotifier.EXPECT().BookCreated(gomock.Any(), testBook).DoAndReturn(func(ctx context.Context, b book.Book) error {
			notified <- b
			return nil
		})

		created, err := s.CreateBook(ctx, testBook)
		is.NoErr(err)
		is.Equal(created, testBook)

		select {
		case b := <-notified:
			is.Equal(b, testBook)
		case <-time.After(time.Second):
			t.Fatal("notifier was not called")
		}
	})

	t.Run("a failing notifier does not fail the creation", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mockNotifier := bookmock.NewMockNotifier(ctrl)
		s := book.NewService(mockRepo, mockNotifier)

		done := make(chan struct{})
		mockRepo.EXPECT().CreateBook(gomock.Any(), testBook).Return(testBook, nil)
		mockNotifier.EXPECT().BookCreated(gomock.Any(), testBook).DoAndReturn(func(ctx context.Context, b book.Book) error {
			close(done)
			return errors.New("ntfy unreachable")
		})

		_, err := s.CreateBook(ctx, testBook)
		is.NoErr(err)
		<-done
	})

	t.Run("a conflict is not notified", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mockNotifier := bookmock.NewMockNotifier(ctrl)
		s := book.NewService(mockRepo, mockNotifier)

		mockRepo.EXPECT().CreateBook(gomock.Any(), testBook).Return(book.Book{}, book.ErrConflict)

		_, err := s.CreateBook(ctx, testBook)
		is.True(errors.Is(err, book.ErrConflict))
	})
}

func TestUpdateBook(t *testing.T) {
	t.Run("uses the path isbn as the key", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		s := book.NewService(mockRepo, nil)

		entry := testBook
		entry.ISBN = ""
		entry.Title = "Updated Book Title"
		want := testBook
		want.Title = "Updated Book Title"

		mockRepo.EXPECT().UpdateBook(gomock.Any(), testBook.ISBN, want).Return(want, nil)

		updated, err := s.UpdateBook(ctx, testBook.ISBN, entry)
		is.NoErr(err)
		is.Equal(updated, want)
	})

	t.Run("refuses a body for another isbn", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		s := book.NewService(mockRepo, nil)

		_, err := s.UpdateBook(ctx, "9999999999999", testBook)
		is.True(errors.Is(err, book.ErrConflict))
	})
}

func TestDeleteBook(t *testing.T) {
	t.Run("propagates not found", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		s := book.NewService(mockRepo, nil)

		mockRepo.EXPECT().DeleteBook(gomock.Any(), testBook.ISBN).Return(book.ErrNotFound)

		err := s.DeleteBook(ctx, testBook.ISBN)
		is.True(errors.Is(err, book.ErrNotFound))
	})
}

func TestReady(t *testing.T) {
	is := is.New(t)
	ctrl := gomock.NewController(t)
	mockRepo := bookmock.NewMockRepository(ctrl)
	s := book.NewService(mockRepo, nil)

	mockRepo.EXPECT().Ping(gomock.Any()).Return(nil)

	is.NoErr(s.Ready(ctx))
}
