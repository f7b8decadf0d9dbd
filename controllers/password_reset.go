package controllers

import (
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	dbpkg "ariadne/db"
	"ariadne/models"
	"ariadne/reset"
	"ariadne/tools"

	"github.com/gin-gonic/gin"
)

// User-facing redemption messages. Deliberately similar in shape so the
// response does not reveal much about token state to someone probing.
const (
	msgInvalid = "This reset link is not valid."
	msgUsed    = "This reset link has already been used."
	msgExpired = "This reset link has expired."
	msgBurned  = "Your password could not be updated and this reset link is no longer valid. Please request a new one."
	msgDone    = "Your password has been updated. You can now log in."
)

// POST /api/password/forgot (public)
// Body: { "email": "...", "channel": "telegram|email" }
// Always returns true (anti-enumeration).
func ForgotPassword(c *gin.Context) {
	type Request struct {
		Email   string `json:"email" form:"email"`
		Channel string `json:"channel" form:"channel"`
	}

	var req Request
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		RespondSuccess(c, true)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil || resetIssuer == nil {
		RespondSuccess(c, true)
		return
	}

	var user models.User
	if err := db.Where("email = ?", strings.TrimSpace(req.Email)).First(&user).Error; err != nil {
		// anti-enumeration: same answer whether or not the account exists
		RespondSuccess(c, true)
		return
	}

	channel, recipient := pickChannel(user, strings.ToLower(strings.TrimSpace(req.Channel)))

	if _, _, err := resetIssuer.Issue(user.ID, channel, recipient); err != nil {
		// best effort; the requester learns nothing either way
		log.Printf("forgot password: issue failed user_id=%d err=%v", user.ID, err)
	}

	RespondSuccess(c, true)
}

// pickChannel resolves the delivery channel for a user. Telegram needs a
// linked chat; everything else falls back to email.
func pickChannel(user models.User, requested string) (string, string) {
	if requested == models.RESET_CHANNEL_TELEGRAM && user.TelegramChatID != 0 {
		return models.RESET_CHANNEL_TELEGRAM, strconv.FormatInt(user.TelegramChatID, 10)
	}
	if requested == "" && user.TelegramChatID != 0 {
		return models.RESET_CHANNEL_TELEGRAM, strconv.FormatInt(user.TelegramChatID, 10)
	}
	return models.RESET_CHANNEL_EMAIL, user.Email
}

// POST /api/password/reset (public)
// Body: { "token": "...", "new_password": "..." }
func ResetPassword(c *gin.Context) {
	type Request struct {
		Token       string `json:"token" form:"token"`
		NewPassword string `json:"new_password" form:"new_password"`
	}

	var req Request
	if err := c.Bind(&req); err != nil {
		RespondError(c, msgInvalid, http.StatusBadRequest)
		return
	}

	msg, code := completeReset(c, strings.TrimSpace(req.Token), strings.TrimSpace(req.NewPassword))
	if code != http.StatusOK {
		RespondError(c, msg, code)
		return
	}
	RespondSuccess(c, true)
}

// completeReset runs the redeem + credential write. The returned message and
// status are shared by the JSON endpoint and the HTML form.
func completeReset(c *gin.Context, token, newPassword string) (string, int) {
	if token == "" {
		return msgInvalid, http.StatusBadRequest
	}
	if rule := tools.CheckPassword(newPassword); rule != "" {
		return "Password too short (minimum 6 characters).", http.StatusBadRequest
	}

	db := dbpkg.DBInstance(c)
	if db == nil || resetValidator == nil {
		return "Service unavailable, try again later.", http.StatusServiceUnavailable
	}

	red, err := resetValidator.Redeem(token)
	if err != nil {
		log.Printf("reset password: redeem error: %v", err)
		return "Service unavailable, try again later.", http.StatusServiceUnavailable
	}

	switch red.Outcome {
	case reset.OutcomeOk:
		// fallthrough to the credential write below
	case reset.OutcomeExpired:
		return msgExpired, http.StatusBadRequest
	case reset.OutcomeAlreadyUsed:
		return msgUsed, http.StatusBadRequest
	default:
		return msgInvalid, http.StatusBadRequest
	}

	var user models.User
	if err := db.First(&user, red.AccountID).Error; err != nil {
		// token is already consumed; never hand it back
		log.Printf("reset password: account %d not found after redeem: %v", red.AccountID, err)
		return msgBurned, http.StatusInternalServerError
	}

	tx := db.Begin()

	if err := tx.Model(&user).Update("password", EncodePassword(user.Email, newPassword)).Error; err != nil {
		tx.Rollback()
		log.Printf("reset password: credential write failed user_id=%d err=%v", user.ID, err)
		return msgBurned, http.StatusInternalServerError
	}

	// force a fresh login everywhere
	if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
		tx.Rollback()
		log.Printf("reset password: refresh revoke failed user_id=%d err=%v", user.ID, err)
		return msgBurned, http.StatusInternalServerError
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		log.Printf("reset password: commit failed user_id=%d err=%v", user.ID, err)
		return msgBurned, http.StatusInternalServerError
	}

	return msgDone, http.StatusOK
}

var resetFormTmpl = template.Must(template.New("reset").Parse(`<!doctype html>
<title>Password Reset</title>
<h2>Password Reset</h2>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .ShowForm}}
<form method="POST" action="{{.Action}}">
  <label>New password:</label><br>
  <input name="new_password" type="password" required minlength="6"><br><br>
  <button type="submit">Set new password</button>
</form>
{{end}}
`))

type resetFormData struct {
	Message  string
	ShowForm bool
	Action   string
}

func renderResetForm(c *gin.Context, code int, data resetFormData) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(code)
	if err := resetFormTmpl.Execute(c.Writer, data); err != nil {
		log.Printf("reset form: render error: %v", err)
	}
}

// GET /reset?token=... (public)
// Peeks at the token without consuming it and shows the form or an error.
func ResetForm(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		renderResetForm(c, http.StatusBadRequest, resetFormData{Message: "Missing token."})
		return
	}
	if resetValidator == nil {
		renderResetForm(c, http.StatusServiceUnavailable, resetFormData{Message: "Service unavailable, try again later."})
		return
	}

	red, err := resetValidator.Peek(token)
	if err != nil {
		renderResetForm(c, http.StatusServiceUnavailable, resetFormData{Message: "Service unavailable, try again later."})
		return
	}

	switch red.Outcome {
	case reset.OutcomeOk:
		action := conf.ResetPath + "?token=" + template.URLQueryEscaper(token)
		renderResetForm(c, http.StatusOK, resetFormData{ShowForm: true, Action: action})
	case reset.OutcomeExpired:
		renderResetForm(c, http.StatusBadRequest, resetFormData{Message: msgExpired})
	case reset.OutcomeAlreadyUsed:
		renderResetForm(c, http.StatusBadRequest, resetFormData{Message: msgUsed})
	default:
		renderResetForm(c, http.StatusBadRequest, resetFormData{Message: msgInvalid})
	}
}

// POST /reset?token=... (public, form-encoded)
func ResetFormSubmit(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	newPassword := strings.TrimSpace(c.PostForm("new_password"))

	msg, code := completeReset(c, token, newPassword)
	renderResetForm(c, code, resetFormData{Message: msg})
}
