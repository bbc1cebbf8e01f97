package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/books-isbn-service/cmd/api/book"
	"github.com/rs/zerolog/log"
)

const errMsgBodyNotObject = "request body must be a JSON object"

type BookHandler struct {
	bookService    book.ServiceAPI
	requestTimeout time.Duration
}

// NewBookHandler builds the handler. A zero requestTimeout leaves the request
// context untouched.
func NewBookHandler(bookService book.ServiceAPI, requestTimeout time.Duration) *BookHandler {
	return &BookHandler{bookService: bookService, requestTimeout: requestTimeout}
}

/* Addresses a call to "/books/(expected isbn here)" according to the requested action.  */
func (h *BookHandler) bookByISBN(w http.ResponseWriter, r *http.Request) {
	r, cancel := h.withTimeout(r)
	defer cancel()

	switch r.Method {
	case http.MethodGet:
		h.getBook(w, r)
	case http.MethodPut:
		h.updateBook(w, r)
	case http.MethodDelete:
		h.deleteBook(w, r)
	default:
		responseJSON(w, http.StatusMethodNotAllowed, book.ErrResponseMethodNotAllowed)
	}
}

/* Addresses a call to "/books" according to the requested action.  */
func (h *BookHandler) books(w http.ResponseWriter, r *http.Request) {
	r, cancel := h.withTimeout(r)
	defer cancel()

	switch r.Method {
	case http.MethodGet:
		h.listBooks(w, r)
	case http.MethodPost:
		h.createBook(w, r)
	default:
		responseJSON(w, http.StatusMethodNotAllowed, book.ErrResponseMethodNotAllowed)
	}
}

func (h *BookHandler) withTimeout(r *http.Request) (*http.Request, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return r, func() {}
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	return r.WithContext(ctx), cancel
}

/* Returns every stored book ordered by isbn. */
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListBooks(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, BooksResponse{Books: booksToResponse(books)})
}

/* Returns the book stored under the isbn of the path. */
func (h *BookHandler) getBook(w http.ResponseWriter, r *http.Request) {
	isbn := isolateISBN(r)

	returnedBook, err := h.bookService.GetBook(r.Context(), isbn)
	if err != nil {
		handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, SingleBookResponse{Book: bookToResponse(returnedBook)})
}

/* Validates the entry, then stores it as a new book. */
func (h *BookHandler) createBook(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	result := book.Validate(payload, book.ModeCreate)
	if !result.Valid {
		responseJSON(w, http.StatusBadRequest, ValidationResponse{Errors: result.Errors})
		return
	}

	storedBook, err := h.bookService.CreateBook(r.Context(), result.Book)
	if err != nil {
		if errors.Is(err, book.ErrConflict) {
			responseJSON(w, http.StatusConflict, ValidationResponse{
				Errors: []string{fmt.Sprintf("a book with isbn %s already exists", result.Book.ISBN)},
			})
			return
		}
		handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusCreated, SingleBookResponse{Book: bookToResponse(storedBook)})
}

/* Validates the entry as a full replacement, then updates the book of the path. */
func (h *BookHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	isbn := isolateISBN(r)

	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	result := book.ValidateReplacement(isbn, payload)
	if !result.Valid {
		responseJSON(w, http.StatusBadRequest, ValidationResponse{Errors: result.Errors})
		return
	}

	updatedBook, err := h.bookService.UpdateBook(r.Context(), isbn, result.Book)
	if err != nil {
		handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, SingleBookResponse{Book: bookToResponse(updatedBook)})
}

func (h *BookHandler) deleteBook(w http.ResponseWriter, r *http.Request) {
	isbn := isolateISBN(r)

	if err := h.bookService.DeleteBook(r.Context(), isbn); err != nil {
		handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, MessageResponse{Message: "Book deleted"})
}

/* Answers 204 while the storage backend is reachable. */
func (h *BookHandler) ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		responseJSON(w, http.StatusMethodNotAllowed, book.ErrResponseMethodNotAllowed)
		return
	}

	if err := h.bookService.Ready(r.Context()); err != nil {
		log.Error().Err(err).Str("request_id", RequestIDFrom(r)).Msg("storage is not ready")
		responseJSON(w, http.StatusServiceUnavailable, book.ErrResponseStorageUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* Maps service errors to a status code and an error body. */
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, book.ErrNotFound):
		responseJSON(w, http.StatusNotFound, book.ErrResponseBookNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("request_id", RequestIDFrom(r)).Msg("request timed out")
		responseJSON(w, http.StatusGatewayTimeout, book.ErrResponseRequestTimeout)
	default:
		log.Error().Err(err).Str("request_id", RequestIDFrom(r)).Str("path", r.URL.Path).Msg("request failed")
		responseJSON(w, http.StatusInternalServerError, book.ErrResponseInternal)
	}
}

/* Reads the body into a payload. Anything but a single JSON object is answered with 400. */
func decodePayload(w http.ResponseWriter, r *http.Request) (book.Payload, bool) {
	var payload book.Payload

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	err := decoder.Decode(&payload)
	if err == nil && decoder.More() {
		err = errors.New("trailing data after JSON object")
	}
	if err != nil || payload == nil {
		log.Debug().Err(err).Str("request_id", RequestIDFrom(r)).Msg("rejecting request body")
		responseJSON(w, http.StatusBadRequest, ValidationResponse{Errors: []string{errMsgBodyNotObject}})
		return nil, false
	}
	return payload, true
}

/* Isolates the isbn from the URL. */
func isolateISBN(r *http.Request) string {
	isbn, _ := strings.CutPrefix(r.URL.Path, "/books/")
	return isbn
}

type BookResponse struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `json:"year"`
	Publisher string `json:"publisher"`
}

type SingleBookResponse struct {
	Book BookResponse `json:"book"`
}

type BooksResponse struct {
	Books []BookResponse `json:"books"`
}

type ValidationResponse struct {
	Errors []string `json:"errors"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

/*Copy the fields of a book object to an http layer struct with json tags*/
func bookToResponse(b book.Book) BookResponse {
	return BookResponse{
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		Year:      b.Year,
		Publisher: b.Publisher,
	}
}

func booksToResponse(books []book.Book) []BookResponse {
	results := []BookResponse{}
	for _, b := range books {
		results = append(results, bookToResponse(b))
	}
	return results
}

/*Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("writing response body")
	}
}
