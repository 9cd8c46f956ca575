package handlers

import (
	"errors"

	"libr-backend/internal/adapters/persistence/models"
	"libr-backend/internal/core/domain"
	"libr-backend/internal/core/services"
	"libr-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BorrowHandler handles borrow, return, request and cancel endpoints
type BorrowHandler struct {
	borrowService *services.BorrowService
}

// NewBorrowHandler creates a new borrow handler
func NewBorrowHandler(borrowService *services.BorrowService) *BorrowHandler {
	return &BorrowHandler{
		borrowService: borrowService,
	}
}

// BorrowCopy lends a copy to the caller
// @Summary Borrow a copy
// @Description Borrow an available copy. Due date is 15 days out, fixed.
// @Tags Borrowing
// @Produce json
// @Security BearerAuth
// @Param copyId path int true "Copy ID"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/copies/{copyId}/borrow [post]
func (h *BorrowHandler) BorrowCopy(c *fiber.Ctx) error {
	copyID, err := c.ParamsInt("copyId")
	if err != nil || copyID < 1 {
		return response.BadRequest(c, "Invalid copy ID")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loan, err := h.borrowService.BorrowCopy(c.Context(), uint(copyID), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCopyNotFound):
			return response.NotFound(c, "Copy not found")
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrNotSubscribed):
			return response.Forbidden(c, "Subscription required to borrow")
		case errors.Is(err, domain.ErrAlreadyBorrowed):
			return response.Conflict(c, "Copy is already on loan")
		default:
			return response.InternalServerError(c, "Failed to borrow copy")
		}
	}

	return response.Created(c, "Copy borrowed successfully", fiber.Map{
		"loan": loan,
	})
}

// ReturnCopy closes the open loan on a copy
// @Summary Return a copy
// @Description Return a borrowed copy. If the queue is non-empty the next user is notified.
// @Tags Borrowing
// @Produce json
// @Security BearerAuth
// @Param copyId path int true "Copy ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/copies/{copyId}/return [post]
func (h *BorrowHandler) ReturnCopy(c *fiber.Ctx) error {
	copyID, err := c.ParamsInt("copyId")
	if err != nil || copyID < 1 {
		return response.BadRequest(c, "Invalid copy ID")
	}

	next, err := h.borrowService.ReturnCopy(c.Context(), uint(copyID))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCopyNotFound):
			return response.NotFound(c, "Copy not found")
		case errors.Is(err, domain.ErrNoActiveLoan):
			return response.Conflict(c, "Copy is not on loan")
		default:
			return response.InternalServerError(c, "Failed to return copy")
		}
	}

	data := fiber.Map{"next_in_queue": next}
	return response.Success(c, "Copy returned successfully", data)
}

// RequestCopy joins the waiting queue of a borrowed copy
// @Summary Request a copy
// @Description Join the FIFO queue of a copy that is currently on loan.
// @Tags Borrowing
// @Produce json
// @Security BearerAuth
// @Param copyId path int true "Copy ID"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/copies/{copyId}/request [post]
func (h *BorrowHandler) RequestCopy(c *fiber.Ctx) error {
	copyID, err := c.ParamsInt("copyId")
	if err != nil || copyID < 1 {
		return response.BadRequest(c, "Invalid copy ID")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	req, position, err := h.borrowService.RequestCopy(c.Context(), uint(copyID), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCopyNotFound):
			return response.NotFound(c, "Copy not found")
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrNotSubscribed):
			return response.Forbidden(c, "Subscription required to request")
		case errors.Is(err, domain.ErrCopyAvailable):
			return response.Conflict(c, "Copy is available, borrow it instead")
		case errors.Is(err, domain.ErrAlreadyHeld):
			return response.Conflict(c, "You already hold this copy")
		case errors.Is(err, domain.ErrDuplicateRequest):
			return response.Conflict(c, "You already have a pending request for this copy")
		default:
			return response.InternalServerError(c, "Failed to request copy")
		}
	}

	return response.Created(c, "Request created successfully", fiber.Map{
		"request":  req,
		"position": position,
	})
}

// CancelRequest removes a pending request
// @Summary Cancel a request
// @Description Cancel a pending request. Owner or admin only.
// @Tags Borrowing
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/requests/{requestId}/cancel [post]
func (h *BorrowHandler) CancelRequest(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("requestId")
	if err != nil || requestID < 1 {
		return response.BadRequest(c, "Invalid request ID")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	role, _ := c.Locals("role").(string)

	err = h.borrowService.CancelRequest(c.Context(), uint(requestID), userID, role == models.RoleAdmin)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRequestNotFound):
			return response.NotFound(c, "Request not found")
		case errors.Is(err, domain.ErrNotOwner):
			return response.Forbidden(c, "You can only cancel your own requests")
		default:
			return response.InternalServerError(c, "Failed to cancel request")
		}
	}

	return response.Success(c, "Request cancelled successfully", nil)
}

// ListBorrowed returns the caller's (or, for admins, any user's) open loans
// @Summary List borrowed books
// @Description List the books a user currently holds with overdue days.
// @Tags Borrowing
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/borrowed [get]
func (h *BorrowHandler) ListBorrowed(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil || targetID < 1 {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.requireSelfOrAdmin(c, uint(targetID)); err != nil {
		return err
	}

	borrowed, err := h.borrowService.ListBorrowed(c.Context(), uint(targetID))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to list borrowed books")
	}

	return response.Success(c, "Borrowed books retrieved successfully", fiber.Map{
		"borrowed": borrowed,
	})
}

// ListRequests returns a user's pending requests with queue positions
// @Summary List requests
// @Description List a user's pending requests with current queue positions.
// @Tags Borrowing
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/requests [get]
func (h *BorrowHandler) ListRequests(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil || targetID < 1 {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.requireSelfOrAdmin(c, uint(targetID)); err != nil {
		return err
	}

	requests, err := h.borrowService.ListRequests(c.Context(), uint(targetID))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to list requests")
	}

	return response.Success(c, "Requests retrieved successfully", fiber.Map{
		"requests": requests,
	})
}

// requireSelfOrAdmin rejects callers reading another user's data unless
// they are admin
func (h *BorrowHandler) requireSelfOrAdmin(c *fiber.Ctx, targetID uint) error {
	callerID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	role, _ := c.Locals("role").(string)

	if callerID != targetID && role != models.RoleAdmin {
		return response.Forbidden(c, "You can only view your own data")
	}
	return nil
}
