package models

import (
	"errors"
	"net/http"
	"time"

	"GuardianPath/pkg/middleware"
	"GuardianPath/pkg/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

const (
	DbField        = "_guardianpath_db"
	UserField      = "_guardianpath_user"
	SessionUserKey = "user_id"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"size:128;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128"`
	Enabled   bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func InjectDB(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DbField, db)
		c.Next()
	}
}

func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser returns the user loaded by AuthRequired, or nil.
func CurrentUser(c *gin.Context) *User {
	if v, ok := c.Get(UserField); ok {
		if u, ok := v.(*User); ok {
			return u
		}
	}
	return nil
}

// SetCurrentUser stores user on the request for downstream handlers.
func SetCurrentUser(c *gin.Context, user *User) {
	c.Set(UserField, user)
	c.Set(middleware.UserIDKey, user.ID)
}

// AuthRequired resolves the session user and aborts with 401 when there is
// none. Requires InjectDB and the sessions middleware.
func AuthRequired(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Next()
		return
	}
	uid := cast.ToUint(sessions.Default(c).Get(SessionUserKey))
	if uid == 0 {
		response.AbortWithJSONError(c, http.StatusUnauthorized, "Authentication required", "Please sign in before triggering an alert")
		return
	}
	db := c.MustGet(DbField).(*gorm.DB)
	user, err := GetUserByID(db, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.AbortWithJSONError(c, http.StatusUnauthorized, "Authentication required", "Session user no longer exists")
			return
		}
		response.AbortWithJSONError(c, http.StatusInternalServerError, "internal error", "Failed to load session user")
		return
	}
	if !user.Enabled {
		response.AbortWithJSONError(c, http.StatusUnauthorized, "Authentication required", "Account is disabled")
		return
	}
	SetCurrentUser(c, user)
	c.Next()
}
