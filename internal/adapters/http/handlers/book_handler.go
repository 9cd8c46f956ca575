package handlers

import (
	"errors"

	"libr-backend/internal/core/domain"
	"libr-backend/internal/core/services"
	"libr-backend/internal/pkg/pagination"
	"libr-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles catalog endpoints
type BookHandler struct {
	catalogService *services.CatalogService
	borrowService  *services.BorrowService
}

// NewBookHandler creates a new book handler
func NewBookHandler(catalogService *services.CatalogService, borrowService *services.BorrowService) *BookHandler {
	return &BookHandler{
		catalogService: catalogService,
		borrowService:  borrowService,
	}
}

// ListBooks returns a page of the catalog
// @Summary List books
// @Description List catalog books with availability counts
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) ListBooks(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	books, meta, err := h.catalogService.ListBooks(c.Context(), params)
	if err != nil {
		return response.InternalServerError(c, "Failed to list books")
	}

	return response.Success(c, "Books retrieved successfully", fiber.Map{
		"books": books,
		"meta":  meta,
	})
}

// GetBook returns a single book
// @Summary Get book
// @Description Get a book with its relations
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.catalogService.GetBook(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to get book")
	}

	return response.Success(c, "Book retrieved successfully", fiber.Map{
		"book": book.ToResponse(),
	})
}

// ListCopies returns all copies of a book
// @Summary List copies
// @Description List all copies of a book with availability
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id}/copies [get]
func (h *BookHandler) ListCopies(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid book ID")
	}

	copies, err := h.catalogService.ListCopies(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to list copies")
	}

	return response.Success(c, "Copies retrieved successfully", fiber.Map{
		"copies": copies,
	})
}

// CreateBook adds a new title to the catalog
// @Summary Create book
// @Description Register a new title. Admin only.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateBookInput true "Book data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books [post]
func (h *BookHandler) CreateBook(c *fiber.Ctx) error {
	var input services.CreateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	book, err := h.catalogService.CreateBook(c.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Title, theme and publisher are required")
		case errors.Is(err, domain.ErrDuplicateEntry):
			return response.Conflict(c, "Catalog code already exists")
		default:
			return response.InternalServerError(c, "Failed to create book")
		}
	}

	return response.Created(c, "Book created successfully", fiber.Map{
		"book": book,
	})
}

// DeleteBook removes a book and its copies
// @Summary Delete book
// @Description Delete a book with all copies. Blocked while any copy is on loan. Admin only.
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/{id}/delete [delete]
func (h *BookHandler) DeleteBook(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.borrowService.DeleteBook(c.Context(), uint(id)); err != nil {
		switch {
		case errors.Is(err, domain.ErrBookNotFound):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, domain.ErrCopyOnLoan):
			return response.Conflict(c, "Book has copies on loan")
		default:
			return response.InternalServerError(c, "Failed to delete book")
		}
	}

	return response.Success(c, "Book deleted successfully", nil)
}

// AddCopy adds a copy to a book
// @Summary Add copy
// @Description Add a new available copy of a book. Admin only.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.AddCopyInput true "Copy data"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id}/copies [post]
func (h *BookHandler) AddCopy(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid book ID")
	}

	var input services.AddCopyInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Location == "" {
		return response.BadRequest(c, "Location is required")
	}

	copy, err := h.borrowService.AddCopy(c.Context(), uint(id), &input)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to add copy")
	}

	return response.Created(c, "Copy added successfully", fiber.Map{
		"copy": copy,
	})
}

// DeleteCopy removes a copy
// @Summary Delete copy
// @Description Delete a copy unless it is on loan. Admin only.
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param copyId path int true "Copy ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/copies/{copyId} [delete]
func (h *BookHandler) DeleteCopy(c *fiber.Ctx) error {
	copyID, err := c.ParamsInt("copyId")
	if err != nil || copyID < 1 {
		return response.BadRequest(c, "Invalid copy ID")
	}

	if err := h.borrowService.DeleteCopy(c.Context(), uint(copyID)); err != nil {
		switch {
		case errors.Is(err, domain.ErrCopyNotFound):
			return response.NotFound(c, "Copy not found")
		case errors.Is(err, domain.ErrCopyOnLoan):
			return response.Conflict(c, "Copy is on loan")
		default:
			return response.InternalServerError(c, "Failed to delete copy")
		}
	}

	return response.Success(c, "Copy deleted successfully", nil)
}
