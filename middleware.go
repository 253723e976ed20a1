package main

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

// CommandHandlerFunc handles one bot command; args is the text after it
type CommandHandlerFunc func(app *App, msg *tgbotapi.Message, args string)

// isAdmin reports whether the sender is a configured admin or unlocked the
// chat with the admin PIN. The PIN is a local convenience gate only.
func isAdmin(app *App, user *tgbotapi.User, chatID int64) bool {
	if user != nil && app.config.IsAdmin(user.UserName) {
		return true
	}
	return app.dialogs.IsUnlocked(chatID)
}

// Helper function to answer unauthorized requests
func sendAdminDeniedMessage(app *App, chatID int64) {
	sendMessage(app, chatID, "This command is for organizers only. Use /admin <PIN> to unlock it.")
}

// AdminCheckMiddleware wraps a command handler with admin verification
func AdminCheckMiddleware(handler CommandHandlerFunc) CommandHandlerFunc {
	return func(app *App, msg *tgbotapi.Message, args string) {
		if !isAdmin(app, msg.From, msg.Chat.ID) {
			app.log.Warn().Int64("chat", msg.Chat.ID).Str("command", msg.Command()).Msg("admin command denied")
			sendAdminDeniedMessage(app, msg.Chat.ID)
			return
		}
		handler(app, msg, args)
	}
}
