package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aegis/models"
	"aegis/services"
	"aegis/utils"
)

type ContactController struct {
	contactService *services.ContactService
}

func NewContactController(contactService *services.ContactService) *ContactController {
	return &ContactController{
		contactService: contactService,
	}
}

// GetContacts lists the user's trusted contacts
func (cc *ContactController) GetContacts(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	contacts, err := cc.contactService.GetContacts(c.Request.Context(), userID)
	if err != nil {
		logrus.Errorf("Get contacts failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Contacts retrieved", contacts)
}

// AddContact registers a new trusted contact
func (cc *ContactController) AddContact(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	contact, err := cc.contactService.AddContact(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Add contact failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Contact added", contact)
}

// DeleteContact removes a trusted contact
func (cc *ContactController) DeleteContact(c *gin.Context) {
	userID := c.GetString("userID")
	contactID := c.Param("contactId")

	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	if err := cc.contactService.DeleteContact(c.Request.Context(), userID, contactID); err != nil {
		logrus.Errorf("Delete contact failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Contact removed", nil)
}

// GenerateLinkingCode issues a one-time code a contact redeems to link their
// own device
func (cc *ContactController) GenerateLinkingCode(c *gin.Context) {
	userID := c.GetString("userID")
	contactID := c.Param("contactId")

	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	code, err := cc.contactService.GenerateLinkingCode(c.Request.Context(), userID, contactID)
	if err != nil {
		logrus.Errorf("Generate linking code failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	// The plaintext code is shown once and never stored.
	utils.CreatedResponse(c, "Linking code generated", gin.H{"code": code})
}

// RedeemLinkingCode links the caller's device to the contact that issued the
// code
func (cc *ContactController) RedeemLinkingCode(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.RedeemLinkingCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	contact, err := cc.contactService.RedeemLinkingCode(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Redeem linking code failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Linking code redeemed", contact)
}
