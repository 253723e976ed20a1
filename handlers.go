package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog"
)

// Telegram rejects longer messages.
const maxMessageLength = 4000

const (
	callbackSlot        = "slot:"
	callbackSkipContact = "skipcontact"
	callbackCalendar    = "ics:"
	callbackRemove      = "rm:"
	callbackRemoveNo    = "rmno"
)

// Bot is the part of the Telegram API the handlers use.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	AnswerCallbackQuery(config tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// App bundles the state every handler works on.
type App struct {
	bot       Bot
	config    *Config
	settings  *SettingsStore
	registry  *Registry
	reminders *ReminderScheduler
	dialogs   *DialogManager
	ids       *IDGenerator
	clock     Clock
	log       zerolog.Logger
	download  func(url string) (io.ReadCloser, error)
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func httpDownload(url string) (io.ReadCloser, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download: %s", resp.Status)
	}
	return resp.Body, nil
}

// HandleUpdate routes one Telegram update.
func (app *App) HandleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		handleCallbackQuery(app, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if msg.IsCommand() {
		handleCommand(app, msg)
		return
	}
	if msg.Document != nil {
		handleDocument(app, msg)
		return
	}
	handleText(app, msg)
}

// handleCommand routes commands to corresponding handlers.
func handleCommand(app *App, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	app.log.Debug().Int64("chat", msg.Chat.ID).Str("command", msg.Command()).Msg("command")

	switch msg.Command() {
	case "start":
		handleStart(app, msg, args)
	case "help":
		handleHelp(app, msg, args)
	case "slots":
		handleSlots(app, msg, args)
	case "mytickets":
		handleMyTickets(app, msg, args)
	case "cancel":
		handleCancel(app, msg, args)
	case "admin":
		handleAdminLogin(app, msg, args)
	case "logout":
		handleLogout(app, msg, args)
	case "tickets":
		AdminCheckMiddleware(handleTickets)(app, msg, args)
	case "remove":
		AdminCheckMiddleware(handleRemove)(app, msg, args)
	case "export":
		AdminCheckMiddleware(handleExport)(app, msg, args)
	case "import":
		AdminCheckMiddleware(handleImport)(app, msg, args)
	case "settings":
		AdminCheckMiddleware(handleSettings)(app, msg, args)
	case "set":
		AdminCheckMiddleware(handleSet)(app, msg, args)
	case "issue":
		AdminCheckMiddleware(handleIssue)(app, msg, args)
	default:
		sendMessage(app, msg.Chat.ID, "Unknown command. See /help.")
	}
}

// sendMessage sends a text message to the given chat.
func sendMessage(app *App, chatID int64, text string) {
	send(app, tgbotapi.NewMessage(chatID, text))
}

func send(app *App, c tgbotapi.Chattable) {
	if _, err := app.bot.Send(c); err != nil {
		app.log.Error().Err(err).Msg("telegram send failed")
	}
}

// sendLong splits text on line boundaries to stay under the message limit.
func sendLong(app *App, chatID int64, text string) {
	var chunk strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if chunk.Len() > 0 && chunk.Len()+len(line)+1 > maxMessageLength {
			sendMessage(app, chatID, chunk.String())
			chunk.Reset()
		}
		if chunk.Len() > 0 {
			chunk.WriteByte('\n')
		}
		chunk.WriteString(line)
	}
	if chunk.Len() > 0 {
		sendMessage(app, chatID, chunk.String())
	}
}

func answerCallback(app *App, cq *tgbotapi.CallbackQuery, text string) {
	if _, err := app.bot.AnswerCallbackQuery(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		app.log.Warn().Err(err).Msg("answer callback failed")
	}
}

// userError turns a domain error into the message shown to the user.
func userError(err error) string {
	var verr *ValidationError
	var cerr *CapacityError
	switch {
	case errors.As(err, &verr):
		return "Sorry, " + verr.Error() + "."
	case errors.As(err, &cerr):
		return "Sorry, this slot is already full. Please pick another one."
	default:
		return "Something went wrong, please try again later."
	}
}

func handleStart(app *App, msg *tgbotapi.Message, args string) {
	app.dialogs.ClearState(msg.Chat.ID)
	s := app.settings.Get()
	intro := "Welcome to " + s.EventTitle + "!"
	if s.Location != "" {
		intro += "\nLocation: " + s.Location
	}
	intro += "\nPick a time slot to get your numbered ticket. /mytickets shows the tickets you already have."
	sendMessage(app, msg.Chat.ID, intro)
	sendSlotKeyboard(app, msg.Chat.ID)
}

func handleHelp(app *App, msg *tgbotapi.Message, args string) {
	text := "/start - pick a slot and get a ticket\n" +
		"/slots - show free places per slot\n" +
		"/mytickets - your tickets\n" +
		"/cancel - abort the current step\n" +
		"/admin <PIN> - unlock organizer commands"
	if isAdmin(app, msg.From, msg.Chat.ID) {
		text += "\n\nOrganizer:\n" +
			"/tickets [filter] - list tickets\n" +
			"/remove <ID> - delete a ticket\n" +
			"/issue <slot id>;<name>[;contact] - issue a ticket\n" +
			"/export - download tickets as CSV\n" +
			"/import - replace tickets from a CSV file\n" +
			"/settings - show settings\n" +
			"/set <field> <value> - change a setting\n" +
			"/logout - lock organizer commands"
	}
	sendMessage(app, msg.Chat.ID, text)
}

// handleSlots lists every slot with its occupancy.
func handleSlots(app *App, msg *tgbotapi.Message, args string) {
	statuses, err := app.registry.Availability()
	if err != nil {
		app.log.Error().Err(err).Msg("slot availability")
		sendMessage(app, msg.Chat.ID, userError(err))
		return
	}
	if len(statuses) == 0 {
		sendMessage(app, msg.Chat.ID, "No slots are configured.")
		return
	}
	s := app.settings.Get()
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\n", s.EventTitle, s.Schedule.Date)
	for _, st := range statuses {
		fmt.Fprintf(&b, "%s  %s\n", st.Label, slotStateText(st))
	}
	sendLong(app, msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
	sendSlotKeyboard(app, msg.Chat.ID)
}

func slotStateText(st SlotStatus) string {
	switch {
	case st.Past:
		return "over"
	case st.Full:
		return "full"
	default:
		return strconv.Itoa(st.Remaining) + " left"
	}
}

// sendSlotKeyboard offers the selectable slots as inline buttons.
func sendSlotKeyboard(app *App, chatID int64) {
	statuses, err := app.registry.Availability()
	if err != nil {
		app.log.Error().Err(err).Msg("slot availability")
		sendMessage(app, chatID, userError(err))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, st := range statuses {
		if !st.Selectable() {
			continue
		}
		label := fmt.Sprintf("%s (%d)", st.Label, st.Remaining)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackSlot+st.ID))
		if len(row) == 3 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	if len(rows) == 0 {
		sendMessage(app, chatID, "Registration is closed: no free slots left.")
		return
	}
	message := tgbotapi.NewMessage(chatID, "Choose a time slot:")
	message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	send(app, message)
}

// handleText drives the name and contact dialog.
func handleText(app *App, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	state, slotID := app.dialogs.GetState(chatID)
	text := strings.TrimSpace(msg.Text)

	switch state {
	case WaitingForName:
		if !ValidateName(text) {
			sendMessage(app, chatID, "Please send the name of the ticket holder.")
			return
		}
		app.dialogs.SetUserData(chatID, "name", text)
		app.dialogs.SetState(chatID, WaitingForContact, slotID)
		message := tgbotapi.NewMessage(chatID, "Send a phone number or email for the ticket, or skip this step.")
		message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Skip", callbackSkipContact)),
		)
		send(app, message)
	case WaitingForContact:
		if !ValidateContact(text) {
			sendMessage(app, chatID, "That does not look like a phone number or email. Try again or press Skip.")
			return
		}
		issueFromDialog(app, chatID, slotID, text)
	case WaitingForImport:
		sendMessage(app, chatID, "Please send the CSV file as a document, or /cancel.")
	default:
		handleStart(app, msg, "")
	}
}

func issueFromDialog(app *App, chatID int64, slotID, contact string) {
	name := app.dialogs.GetUserData(chatID, "name")
	app.dialogs.ClearState(chatID)

	t, err := app.registry.Create(CreateRequest{Name: name, Contact: contact, SlotID: slotID, ChatID: chatID})
	if err != nil {
		app.log.Info().Err(err).Int64("chat", chatID).Str("slot", slotID).Msg("ticket refused")
		sendMessage(app, chatID, userError(err))
		sendSlotKeyboard(app, chatID)
		return
	}
	app.log.Info().Str("ticket", t.ID).Str("slot", t.SlotID).Int64("chat", chatID).Msg("ticket issued")
	sendTicket(app, chatID, t)
}

// sendTicket sends the confirmation text, the QR code and a calendar button.
func sendTicket(app *App, chatID int64, t Ticket) {
	s := app.settings.Get()
	loc := app.settings.Location()
	text := fmt.Sprintf("Your ticket: %s\n%s\n%s, %s\nName: %s",
		t.ID, s.EventTitle, t.SlotStart.In(loc).Format(dateLayout), t.SlotLabel(loc), t.Name)
	if s.Location != "" {
		text += "\nLocation: " + s.Location
	}
	message := tgbotapi.NewMessage(chatID, text)
	message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Add to calendar", callbackCalendar+t.ID)),
	)
	send(app, message)

	png, err := TicketQRCode(t)
	if err != nil {
		app.log.Error().Err(err).Str("ticket", t.ID).Msg("qr code")
		return
	}
	photo := tgbotapi.NewPhotoUpload(chatID, tgbotapi.FileBytes{Name: t.ID + ".png", Bytes: png})
	photo.Caption = "Show this code at the entrance"
	send(app, photo)
}

func handleMyTickets(app *App, msg *tgbotapi.Message, args string) {
	tickets := app.registry.ForChat(msg.Chat.ID)
	if len(tickets) == 0 {
		sendMessage(app, msg.Chat.ID, "You have no tickets yet. Use /start to get one.")
		return
	}
	loc := app.settings.Location()
	var b strings.Builder
	for _, t := range tickets {
		fmt.Fprintf(&b, "%s  %s %s  %s\n", t.ID, t.SlotStart.In(loc).Format(dateLayout), t.SlotLabel(loc), t.Name)
	}
	sendLong(app, msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
}

func handleCancel(app *App, msg *tgbotapi.Message, args string) {
	app.dialogs.ClearState(msg.Chat.ID)
	sendMessage(app, msg.Chat.ID, "Cancelled.")
}

func handleAdminLogin(app *App, msg *tgbotapi.Message, args string) {
	if args == "" {
		sendMessage(app, msg.Chat.ID, "Usage: /admin <PIN>")
		return
	}
	if args != app.settings.Get().AdminPin {
		app.log.Warn().Int64("chat", msg.Chat.ID).Msg("wrong admin pin")
		sendMessage(app, msg.Chat.ID, "Wrong PIN.")
		return
	}
	app.dialogs.Unlock(msg.Chat.ID)
	sendMessage(app, msg.Chat.ID, "Organizer commands unlocked. See /help.")
}

func handleLogout(app *App, msg *tgbotapi.Message, args string) {
	app.dialogs.Lock(msg.Chat.ID)
	sendMessage(app, msg.Chat.ID, "Organizer commands locked.")
}

// handleTickets lists tickets, optionally filtered.
func handleTickets(app *App, msg *tgbotapi.Message, args string) {
	tickets := app.registry.List(args)
	if len(tickets) == 0 {
		sendMessage(app, msg.Chat.ID, "No tickets found.")
		return
	}
	loc := app.settings.Location()
	var b strings.Builder
	fmt.Fprintf(&b, "%d ticket(s)\n", len(tickets))
	for _, t := range tickets {
		fmt.Fprintf(&b, "%s | %s | %s | %s %s\n", t.ID, t.Name, t.Contact, t.SlotID, t.SlotLabel(loc))
	}
	sendLong(app, msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
}

// handleRemove asks for confirmation before deleting a ticket.
func handleRemove(app *App, msg *tgbotapi.Message, args string) {
	id := strings.ToUpper(args)
	if id == "" {
		sendMessage(app, msg.Chat.ID, "Usage: /remove <ticket ID>")
		return
	}
	t, ok := app.registry.Get(id)
	if !ok {
		sendMessage(app, msg.Chat.ID, "Ticket "+id+" not found.")
		return
	}
	message := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Delete ticket %s (%s, %s)?", t.ID, t.Name, t.SlotLabel(app.settings.Location())))
	message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete", callbackRemove+t.ID),
			tgbotapi.NewInlineKeyboardButtonData("Keep", callbackRemoveNo),
		),
	)
	send(app, message)
}

// handleExport sends all tickets as a CSV document.
func handleExport(app *App, msg *tgbotapi.Message, args string) {
	tickets := app.registry.List("")
	if len(tickets) == 0 {
		sendMessage(app, msg.Chat.ID, "No tickets to export.")
		return
	}

	var buf bytes.Buffer
	if err := WriteTicketsCSV(&buf, tickets, app.settings.Location()); err != nil {
		app.log.Error().Err(err).Msg("csv export")
		sendMessage(app, msg.Chat.ID, "Could not build the CSV file: "+err.Error())
		return
	}

	filename := "tickets_export_" + app.clock.Now().Format("20060102_150405") + ".csv"
	doc := tgbotapi.NewDocumentUpload(msg.Chat.ID, tgbotapi.FileBytes{Name: filename, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("Ticket export (%d records)", len(tickets))
	send(app, doc)
}

func handleImport(app *App, msg *tgbotapi.Message, args string) {
	app.dialogs.SetState(msg.Chat.ID, WaitingForImport, "")
	sendMessage(app, msg.Chat.ID, fmt.Sprintf(
		"Send the CSV file now. It replaces all %d current tickets. Header: %s", app.registry.Len(), strings.Join(csvHeader, ",")))
}

// handleDocument receives the CSV file announced by /import.
func handleDocument(app *App, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if state, _ := app.dialogs.GetState(chatID); state != WaitingForImport {
		sendMessage(app, chatID, "To import tickets, send /import first.")
		return
	}
	if !isAdmin(app, msg.From, chatID) {
		app.dialogs.ClearState(chatID)
		sendAdminDeniedMessage(app, chatID)
		return
	}
	app.dialogs.ClearState(chatID)

	url, err := app.bot.GetFileDirectURL(msg.Document.FileID)
	if err != nil {
		app.log.Error().Err(err).Msg("import file url")
		sendMessage(app, chatID, "Could not fetch the file: "+err.Error())
		return
	}
	body, err := app.download(url)
	if err != nil {
		app.log.Error().Err(err).Msg("import download")
		sendMessage(app, chatID, "Could not fetch the file: "+err.Error())
		return
	}
	defer body.Close()

	res, err := importTickets(app, body)
	if err != nil {
		app.log.Warn().Err(err).Msg("import rejected")
		sendMessage(app, chatID, "Import failed: "+err.Error())
		return
	}
	sendMessage(app, chatID, importReport(res))
}

// importTickets parses r and replaces the whole registry with its rows.
func importTickets(app *App, r io.Reader) (*ImportResult, error) {
	slots, err := app.settings.Slots()
	if err != nil {
		return nil, err
	}
	res, err := ReadTicketsCSV(r, ImportOptions{
		Slots:    slots,
		Existing: app.registry.List(""),
		IDs:      app.ids,
		Now:      app.clock.Now(),
		Location: app.settings.Location(),
	})
	if err != nil {
		return nil, err
	}
	if err := app.registry.ReplaceAll(res.Tickets); err != nil {
		return nil, err
	}
	app.log.Info().Int("tickets", len(res.Tickets)).Int("warnings", len(res.Warnings)).Msg("tickets imported")
	return res, nil
}

func importReport(res *ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d ticket(s).", len(res.Tickets))
	const maxShown = 20
	for i, w := range res.Warnings {
		if i == maxShown {
			fmt.Fprintf(&b, "\n... and %d more warnings", len(res.Warnings)-maxShown)
			break
		}
		b.WriteString("\n")
		b.WriteString(w.Error())
	}
	return b.String()
}

func handleSettings(app *App, msg *tgbotapi.Message, args string) {
	s := app.settings.Get()
	slots, err := app.settings.Slots()
	if err != nil {
		app.log.Error().Err(err).Msg("build slots")
	}
	text := fmt.Sprintf("title: %s\nlocation: %s\ndate: %s\nstart: %s\nend: %s\nslot_minutes: %d\ncapacity: %d\nreminder_minutes: %d\npin: %s\n\n%d slot(s), %d ticket(s)",
		s.EventTitle, s.Location, s.Schedule.Date, s.Schedule.Start, s.Schedule.End,
		s.SlotMinutes, s.SlotCapacity, s.ReminderMinutesBefore, s.AdminPin,
		len(slots), app.registry.Len())
	sendMessage(app, msg.Chat.ID, text)
}

// handleSet changes one setting: /set <field> <value>.
func handleSet(app *App, msg *tgbotapi.Message, args string) {
	parts := strings.SplitN(args, " ", 2)
	if len(parts) < 2 {
		sendMessage(app, msg.Chat.ID, "Usage: /set <field> <value>\nFields: title, location, date, start, end, slot_minutes, capacity, reminder_minutes, pin")
		return
	}
	patch, err := parseSettingField(parts[0], strings.TrimSpace(parts[1]))
	if err != nil {
		sendMessage(app, msg.Chat.ID, userError(err))
		return
	}
	if _, err := app.settings.Update(patch); err != nil {
		app.log.Info().Err(err).Str("field", parts[0]).Msg("settings update refused")
		sendMessage(app, msg.Chat.ID, userError(err))
		return
	}
	pending := app.reminders.Reschedule(app.registry.List(""))
	app.log.Info().Str("field", parts[0]).Int("reminders", pending).Msg("settings updated")
	sendMessage(app, msg.Chat.ID, "Saved.")
}

func parseSettingField(field, value string) (SettingsPatch, error) {
	var p SettingsPatch
	number := func() (*int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, &ValidationError{Field: field, Reason: "expected a whole number"}
		}
		return &n, nil
	}
	var err error
	switch strings.ToLower(field) {
	case "title":
		p.EventTitle = &value
	case "location":
		p.Location = &value
	case "date":
		p.Date = &value
	case "start":
		p.Start = &value
	case "end":
		p.End = &value
	case "pin":
		p.AdminPin = &value
	case "slot_minutes":
		p.SlotMinutes, err = number()
	case "capacity":
		p.SlotCapacity, err = number()
	case "reminder_minutes":
		p.ReminderMinutesBefore, err = number()
	default:
		err = &ValidationError{Field: "field", Reason: fmt.Sprintf("unknown setting %q", field)}
	}
	return p, err
}

// handleIssue lets an organizer issue a ticket at the desk:
// /issue <slot id>;<name>[;contact].
func handleIssue(app *App, msg *tgbotapi.Message, args string) {
	parts := strings.Split(args, ";")
	if len(parts) < 2 {
		sendMessage(app, msg.Chat.ID, "Usage: /issue <slot id>;<name>[;contact]")
		return
	}
	req := CreateRequest{SlotID: strings.TrimSpace(parts[0]), Name: parts[1]}
	if len(parts) > 2 {
		req.Contact = parts[2]
	}
	t, err := app.registry.Create(req)
	if err != nil {
		sendMessage(app, msg.Chat.ID, userError(err))
		return
	}
	app.log.Info().Str("ticket", t.ID).Str("slot", t.SlotID).Msg("ticket issued by organizer")
	sendTicket(app, msg.Chat.ID, t)
}

// handleCallbackQuery handles inline button callbacks.
func handleCallbackQuery(app *App, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	switch {
	case strings.HasPrefix(cq.Data, callbackSlot):
		handleSlotChosen(app, cq, strings.TrimPrefix(cq.Data, callbackSlot))
	case cq.Data == callbackSkipContact:
		if state, slotID := app.dialogs.GetState(chatID); state == WaitingForContact {
			answerCallback(app, cq, "")
			issueFromDialog(app, chatID, slotID, "")
			return
		}
		answerCallback(app, cq, "Nothing to skip")
	case strings.HasPrefix(cq.Data, callbackCalendar):
		handleCalendar(app, cq, strings.TrimPrefix(cq.Data, callbackCalendar))
	case strings.HasPrefix(cq.Data, callbackRemove):
		if !isAdmin(app, cq.From, chatID) {
			answerCallback(app, cq, "Not allowed")
			return
		}
		id := strings.TrimPrefix(cq.Data, callbackRemove)
		removed, err := app.registry.Remove(id)
		switch {
		case err != nil:
			app.log.Error().Err(err).Str("ticket", id).Msg("remove ticket")
			answerCallback(app, cq, "Error")
			sendMessage(app, chatID, userError(err))
		case removed:
			app.log.Info().Str("ticket", id).Msg("ticket removed")
			answerCallback(app, cq, "Deleted")
			sendMessage(app, chatID, "Ticket "+id+" deleted.")
		default:
			answerCallback(app, cq, "Already gone")
		}
	case cq.Data == callbackRemoveNo:
		answerCallback(app, cq, "Kept")
	default:
		answerCallback(app, cq, "")
	}
}

func handleSlotChosen(app *App, cq *tgbotapi.CallbackQuery, slotID string) {
	chatID := cq.Message.Chat.ID
	statuses, err := app.registry.Availability()
	if err != nil {
		answerCallback(app, cq, "Error")
		sendMessage(app, chatID, userError(err))
		return
	}
	var chosen *SlotStatus
	for i := range statuses {
		if statuses[i].ID == slotID {
			chosen = &statuses[i]
			break
		}
	}
	switch {
	case chosen == nil:
		answerCallback(app, cq, "This slot no longer exists")
		sendSlotKeyboard(app, chatID)
		return
	case chosen.Past:
		answerCallback(app, cq, "This slot is already over")
		sendSlotKeyboard(app, chatID)
		return
	case chosen.Full:
		answerCallback(app, cq, "This slot is full")
		sendSlotKeyboard(app, chatID)
		return
	}

	app.dialogs.SetState(chatID, WaitingForName, slotID)
	answerCallback(app, cq, chosen.Label)
	sendMessage(app, chatID, "Slot "+chosen.Label+". Please send the name of the ticket holder.")
}

// handleCalendar sends the .ics file for a ticket of this chat.
func handleCalendar(app *App, cq *tgbotapi.CallbackQuery, id string) {
	chatID := cq.Message.Chat.ID
	t, ok := app.registry.Get(id)
	if !ok || (t.ChatID != chatID && !isAdmin(app, cq.From, chatID)) {
		answerCallback(app, cq, "Ticket not found")
		return
	}
	var buf bytes.Buffer
	if err := WriteICS(&buf, t, app.settings.Get(), app.clock.Now()); err != nil {
		app.log.Error().Err(err).Str("ticket", id).Msg("calendar export")
		answerCallback(app, cq, "Error")
		return
	}
	answerCallback(app, cq, "")
	send(app, tgbotapi.NewDocumentUpload(chatID, tgbotapi.FileBytes{Name: t.ID + ".ics", Bytes: buf.Bytes()}))
}

// NotifyReminder sends the slot reminder to the chat that booked the ticket.
func (app *App) NotifyReminder(t Ticket) error {
	s := app.settings.Get()
	loc := app.settings.Location()
	text := fmt.Sprintf("Reminder: your slot %s for %s starts at %s. Ticket %s.",
		t.SlotLabel(loc), s.EventTitle, t.SlotStart.In(loc).Format(clockLayout), t.ID)
	if s.Location != "" {
		text += "\nLocation: " + s.Location
	}
	_, err := app.bot.Send(tgbotapi.NewMessage(t.ChatID, text))
	return err
}
