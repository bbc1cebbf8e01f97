package book

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

type ServiceAPI interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, isbn string) (Book, error)
	CreateBook(ctx context.Context, bookEntry Book) (Book, error)
	UpdateBook(ctx context.Context, isbn string, bookEntry Book) (Book, error)
	DeleteBook(ctx context.Context, isbn string) error
	Ready(ctx context.Context) error
}

type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService wires the repository. notifier may be nil.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

func (s *Service) ListBooks(ctx context.Context) ([]Book, error) {
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, isbn string) (Book, error) {
	return s.repo.GetBookByISBN(ctx, isbn)
}

/* Stores a validated book and, when a notifier is set, announces it in the background. */
func (s *Service) CreateBook(ctx context.Context, bookEntry Book) (Book, error) {
	created, err := s.repo.CreateBook(ctx, bookEntry)
	if err != nil {
		return Book{}, err
	}

	if s.notifier != nil {
		go func(b Book) {
			if err := s.notifier.BookCreated(context.Background(), b); err != nil {
				log.Warn().Err(err).Str("isbn", b.ISBN).Msg("book created notification failed")
			}
		}(created)
	}

	return created, nil
}

// UpdateBook replaces every mutable field of the book stored under isbn.
func (s *Service) UpdateBook(ctx context.Context, isbn string, bookEntry Book) (Book, error) {
	if bookEntry.ISBN != "" && bookEntry.ISBN != isbn {
		return Book{}, fmt.Errorf("updating book %s with body for %s: %w", isbn, bookEntry.ISBN, ErrConflict)
	}
	bookEntry.ISBN = isbn
	return s.repo.UpdateBook(ctx, isbn, bookEntry)
}

func (s *Service) DeleteBook(ctx context.Context, isbn string) error {
	return s.repo.DeleteBook(ctx, isbn)
}

func (s *Service) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
