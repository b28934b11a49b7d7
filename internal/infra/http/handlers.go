package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"barista/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (s *Server) handleListDrinks(c *gin.Context) {
	if !s.enforceRateLimit(c, "drinks:list") {
		return
	}
	drinks, err := s.drinks.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if len(drinks) == 0 {
		writeError(c, domain.ErrNotFound)
		return
	}
	views := make([]domain.ShortView, 0, len(drinks))
	for _, drink := range drinks {
		views = append(views, drink.Short())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": views})
}

func (s *Server) handleListDrinksDetail(c *gin.Context) {
	if _, ok := s.requireAuth(c, permDrinksDetail); !ok {
		return
	}
	if !s.enforceRateLimit(c, "drinks:detail") {
		return
	}
	drinks, err := s.drinks.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if len(drinks) == 0 {
		writeError(c, domain.ErrNotFound)
		return
	}
	views := make([]domain.LongView, 0, len(drinks))
	for _, drink := range drinks {
		views = append(views, drink.Long())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": views})
}

func (s *Server) handleCreateDrink(c *gin.Context) {
	if _, ok := s.requireAuth(c, permCreateDrinks); !ok {
		return
	}
	if !s.enforceRateLimit(c, "drinks:create") {
		return
	}
	var req struct {
		Title  *string             `json:"title"`
		Recipe []domain.Ingredient `json:"recipe"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrUnprocessable)
		return
	}
	if req.Title == nil || req.Recipe == nil {
		writeError(c, domain.ErrUnprocessable)
		return
	}
	drink := domain.Drink{Title: *req.Title, Recipe: req.Recipe}
	if err := s.drinks.Create(c.Request.Context(), &drink); err != nil {
		// Covers constraint violations (duplicate title) and store errors
		// alike; nothing partial is left behind.
		writeError(c, domain.ErrUnprocessable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []domain.LongView{drink.Long()}})
}

func (s *Server) handleEditDrink(c *gin.Context) {
	if _, ok := s.requireAuth(c, permPatchDrinks); !ok {
		return
	}
	if !s.enforceRateLimit(c, "drinks:edit") {
		return
	}
	id, err := parseDrinkID(c.Param("id"))
	if err != nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	drink, err := s.drinks.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		writeError(c, domain.ErrUnprocessable)
		return
	}
	// Stage all recognized fields before writing anything so an invalid
	// field name or value leaves the record untouched.
	for field, raw := range body {
		switch field {
		case "id":
			// Caller-supplied id is ignored, not an error.
		case "title":
			var title string
			if err := json.Unmarshal(raw, &title); err != nil {
				writeError(c, domain.ErrUnprocessable)
				return
			}
			drink.Title = title
		case "recipe":
			var recipe []domain.Ingredient
			if err := json.Unmarshal(raw, &recipe); err != nil {
				writeError(c, domain.ErrUnprocessable)
				return
			}
			drink.Recipe = recipe
		default:
			writeError(c, domain.ErrUnknownField)
			return
		}
	}

	if err := s.drinks.Update(c.Request.Context(), *drink); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []domain.LongView{drink.Long()}})
}

func (s *Server) handleDeleteDrink(c *gin.Context) {
	if _, ok := s.requireAuth(c, permDeleteDrinks); !ok {
		return
	}
	if !s.enforceRateLimit(c, "drinks:delete") {
		return
	}
	id, err := parseDrinkID(c.Param("id"))
	if err != nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if err := s.drinks.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "delete": id})
}

func parseDrinkID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

// writeError collapses a handler failure to one of the fixed statuses. Auth
// failures carry their own status and code; any other failure during a data
// operation falls through to 422.
func writeError(c *gin.Context, err error) {
	if authErr, ok := domain.IsAuthError(err); ok {
		c.JSON(authErr.Status, errorResponse{
			Success: false,
			Error:   authErr.Status,
			Code:    authErr.Code,
			Message: authErr.Description,
		})
		return
	}
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrNotFound):
		writeStatus(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrUnknownField):
		writeStatus(c, http.StatusBadRequest, "bad request")
	default:
		writeStatus(c, http.StatusUnprocessableEntity, "unprocessable")
	}
}

func writeStatus(c *gin.Context, status int, message string) {
	c.JSON(status, errorResponse{
		Success: false,
		Error:   status,
		Message: message,
	})
}
