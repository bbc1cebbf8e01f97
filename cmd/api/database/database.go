package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/books-isbn-service/cmd/api/book"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// uniqueViolation is the Postgres SQLSTATE raised on a duplicate primary key.
const uniqueViolation = "23505"

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	exc DBTX
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		exc: db,
	}
}

/* Connects to the database through a connection string and returns a pointer to a valid DB object (*sql.DB). */
func ConnectDb(ctx context.Context, connStr string) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to db, opening: %w", err)
	}

	err = sqlDB.PingContext(ctx)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to db, pinging: %w", err)
	}

	log.Info().Msg("database connection OK")
	return sqlDB, nil
}

// MigrationUp applies every pending migration found under path. An up to
// date schema is reported as migrate.ErrNoChange.
func MigrationUp(store *Store, path string) error {
	driver, err := postgres.WithInstance(store.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", path),
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	err = m.Up()
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}
	return nil
}

func (store *Store) Ping(ctx context.Context) error {
	return store.db.PingContext(ctx)
}

/* Returns every stored book ordered by isbn. */
func (store *Store) ListBooks(ctx context.Context) ([]book.Book, error) {
	sqlStatement := `SELECT isbn, title, author, year, publisher
	FROM books
	ORDER BY isbn;`

	rows, err := store.exc.QueryContext(ctx, sqlStatement)
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	defer rows.Close()

	booksList := []book.Book{}
	for rows.Next() {
		var b book.Book
		err = rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Year, &b.Publisher)
		if err != nil {
			return nil, fmt.Errorf("listing books from db: %w", err)
		}
		booksList = append(booksList, b)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	return booksList, nil
}

/* Searches a book by isbn and returns it if succeed. */
func (store *Store) GetBookByISBN(ctx context.Context, isbn string) (book.Book, error) {
	sqlStatement := `SELECT isbn, title, author, year, publisher
	FROM books
	WHERE isbn = $1;`
	foundRow := store.exc.QueryRowContext(ctx, sqlStatement, isbn)
	var bookToReturn book.Book
	err := foundRow.Scan(&bookToReturn.ISBN, &bookToReturn.Title, &bookToReturn.Author, &bookToReturn.Year, &bookToReturn.Publisher)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return book.Book{}, fmt.Errorf("searching by isbn: %w", book.ErrNotFound)
		}
		return book.Book{}, fmt.Errorf("searching by isbn: %w", err)
	}

	return bookToReturn, nil
}

/* Stores the book into the database and returns the stored row. */
func (store *Store) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	sqlStatement := `
	INSERT INTO books (isbn, title, author, year, publisher)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING isbn, title, author, year, publisher`
	createdRow := store.exc.QueryRowContext(ctx, sqlStatement, bookEntry.ISBN, bookEntry.Title, bookEntry.Author, bookEntry.Year, bookEntry.Publisher)
	var bookToReturn book.Book
	err := createdRow.Scan(&bookToReturn.ISBN, &bookToReturn.Title, &bookToReturn.Author, &bookToReturn.Year, &bookToReturn.Publisher)
	if err != nil {
		if isUniqueViolation(err) {
			return book.Book{}, fmt.Errorf("storing book %s on db: %w", bookEntry.ISBN, book.ErrConflict)
		}
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	return bookToReturn, nil
}

/* Replaces the mutable fields of the book stored under isbn. */
func (store *Store) UpdateBook(ctx context.Context, isbn string, bookEntry book.Book) (book.Book, error) {
	sqlStatement := `
	UPDATE books
	SET title = $2, author = $3, year = $4, publisher = $5
	WHERE isbn = $1
	RETURNING isbn, title, author, year, publisher`
	updatedRow := store.exc.QueryRowContext(ctx, sqlStatement, isbn, bookEntry.Title, bookEntry.Author, bookEntry.Year, bookEntry.Publisher)
	var bookToReturn book.Book
	err := updatedRow.Scan(&bookToReturn.ISBN, &bookToReturn.Title, &bookToReturn.Author, &bookToReturn.Year, &bookToReturn.Publisher)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return book.Book{}, fmt.Errorf("updating on db: %w", book.ErrNotFound)
		}
		return book.Book{}, fmt.Errorf("updating on db: %w", err)
	}

	return bookToReturn, nil
}

func (store *Store) DeleteBook(ctx context.Context, isbn string) error {
	sqlStatement := `
	DELETE FROM books
	WHERE isbn = $1;`
	result, err := store.exc.ExecContext(ctx, sqlStatement, isbn)
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deleting book from db: %w", book.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
