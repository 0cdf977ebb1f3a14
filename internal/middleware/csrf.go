package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/teamspace/internal/resputil"
)

// CSRFHeaderKey must accompany state-changing PATCH calls from the browser.
// Its presence proves the request came from script (fetch/XHR), not a form
// post, since browsers do not let cross-origin pages set custom headers.
const CSRFHeaderKey = "X-Requested-With"

func RequireCSRFHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Header.Get(CSRFHeaderKey) == "" {
			resputil.BadRequestError(c, "Missing "+CSRFHeaderKey+" header")
			c.Abort()
			return
		}
		c.Next()
	}
}
