package auth

import "github.com/gin-gonic/gin"

const identityKey = "identity"

// Required aborts with onMissing unless the request has a live session. err
// is ErrNotAuthenticated when there is no session, or the lookup failure. The
// identity is stored on the context for IdentityFrom.
func Required(s *Sessions, onMissing func(c *gin.Context, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := s.Identify(c)
		if err != nil {
			onMissing(c, err)
			c.Abort()
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the identity set by Required.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
