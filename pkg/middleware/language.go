package middleware

import (
	"GuardianPath/pkg/i18n"

	"github.com/gin-gonic/gin"
)

const (
	LangKey   = "lang"
	UserIDKey = "user_id"
)

// LanguageMiddleware picks the response language from ?lang= or the
// Accept-Language header, falling back to the bundle default.
func LanguageMiddleware(i18nSupport *i18n.I18nSupport) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := c.Query("lang")
		if lang == "" || !i18nSupport.Supports(lang) {
			lang = i18nSupport.Match(c.GetHeader("Accept-Language"))
		}
		c.Set(LangKey, lang)
		c.Next()
	}
}

func Lang(c *gin.Context) string {
	return c.GetString(LangKey)
}
