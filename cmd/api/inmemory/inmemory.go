package inmemory

import (
	"context"
	"fmt"

	"github.com/books-isbn-service/cmd/api/book"
	"github.com/hashicorp/go-memdb"
)

const booksTable = "books"

type InMemoryStore struct {
	db *memdb.MemDB
}

func NewInMemoryStore() (*InMemoryStore, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			booksTable: {
				Name: booksTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ISBN"},
					},
				},
			},
		},
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("validating in-memory schema: %w", err)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &InMemoryStore{db: db}, nil
}

// storedBook is the row kept in memdb. Values are copied in and out so callers
// never share memory with the table.
type storedBook struct {
	ISBN      string
	Title     string
	Author    string
	Year      int
	Publisher string
}

func toStored(b book.Book) *storedBook {
	return &storedBook{
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		Year:      b.Year,
		Publisher: b.Publisher,
	}
}

func (s *storedBook) toBook() book.Book {
	return book.Book{
		ISBN:      s.ISBN,
		Title:     s.Title,
		Author:    s.Author,
		Year:      s.Year,
		Publisher: s.Publisher,
	}
}

func (store *InMemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (store *InMemoryStore) ListBooks(ctx context.Context) ([]book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(booksTable, "id")
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	books := []book.Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		books = append(books, obj.(*storedBook).toBook())
	}
	return books, nil
}

func (store *InMemoryStore) GetBookByISBN(ctx context.Context, isbn string) (book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(booksTable, "id", isbn)
	if err != nil {
		return book.Book{}, fmt.Errorf("searching by isbn: %w", err)
	}
	if raw == nil {
		return book.Book{}, fmt.Errorf("searching by isbn: %w", book.ErrNotFound)
	}

	return raw.(*storedBook).toBook(), nil
}

/* Inserts the book unless its isbn is already taken. The lookup and the insert share one write transaction. */
func (store *InMemoryStore) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	txn := store.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(booksTable, "id", bookEntry.ISBN)
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}
	if existing != nil {
		return book.Book{}, fmt.Errorf("storing book %s on db: %w", bookEntry.ISBN, book.ErrConflict)
	}

	row := toStored(bookEntry)
	if err := txn.Insert(booksTable, row); err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}
	txn.Commit()

	return row.toBook(), nil
}

func (store *InMemoryStore) UpdateBook(ctx context.Context, isbn string, bookEntry book.Book) (book.Book, error) {
	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(booksTable, "id", isbn)
	if err != nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", err)
	}
	if raw == nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", book.ErrNotFound)
	}

	// memdb objects must not be mutated in place.
	updated := *raw.(*storedBook)
	updated.Title = bookEntry.Title
	updated.Author = bookEntry.Author
	updated.Year = bookEntry.Year
	updated.Publisher = bookEntry.Publisher

	if err := txn.Insert(booksTable, &updated); err != nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", err)
	}
	txn.Commit()

	return updated.toBook(), nil
}

func (store *InMemoryStore) DeleteBook(ctx context.Context, isbn string) error {
	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(booksTable, "id", isbn)
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("deleting book from db: %w", book.ErrNotFound)
	}

	if err := txn.Delete(booksTable, raw); err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	txn.Commit()
	return nil
}
