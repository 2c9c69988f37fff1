// routes/contact.go
package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupContactRoutes configures trusted contact management. Widget tokens
// cannot reach these routes.
func SetupContactRoutes(router *gin.RouterGroup, deps Dependencies) {
	contacts := router.Group("/contacts")
	contacts.Use(deps.Auth.RequireTokenType("device"))
	{
		contacts.GET("/", deps.Contact.GetContacts)
		contacts.POST("/", deps.Contact.AddContact)
		contacts.DELETE("/:contactId", deps.Contact.DeleteContact)
		contacts.POST("/:contactId/link-code", deps.Contact.GenerateLinkingCode)
		contacts.POST("/link-code/redeem", deps.Contact.RedeemLinkingCode)
	}
}
