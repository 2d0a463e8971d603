package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hrm/internal/model"
)

const principalKey = "principal"

// EmployeeLookup resolves a verified identity to its current record.
type EmployeeLookup interface {
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
}

// Gate rejects requests without a valid bearer access token and attaches
// the calling employee to the gin context. Role checks are left to the
// handlers.
func Gate(issuer *Issuer, employees EmployeeLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			return
		}
		id, err := issuer.VerifyAccess(token)
		if err != nil {
			msg := "Given token not valid."
			if errors.Is(err, ErrTokenExpired) {
				msg = "Token has expired."
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		emp, err := employees.GetEmployee(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if emp == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found."})
			return
		}
		c.Set(principalKey, *emp)
		c.Next()
	}
}

// CurrentEmployee returns the principal attached by Gate.
func CurrentEmployee(c *gin.Context) (model.Employee, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return model.Employee{}, false
	}
	emp, ok := v.(model.Employee)
	return emp, ok
}

func bearerToken(header string) (string, bool) {
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("bearer "):])
	return token, token != ""
}
