package book

import "context"

// Book is the only resource of the service, keyed by its 13 digit ISBN.
type Book struct {
	ISBN      string
	Title     string
	Author    string
	Year      int
	Publisher string
}

type Repository interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (Book, error)
	CreateBook(ctx context.Context, bookEntry Book) (Book, error)
	UpdateBook(ctx context.Context, isbn string, bookEntry Book) (Book, error)
	DeleteBook(ctx context.Context, isbn string) error
	Ping(ctx context.Context) error
}

// Notifier is told about every book stored by CreateBook.
type Notifier interface {
	BookCreated(ctx context.Context, b Book) error
}
