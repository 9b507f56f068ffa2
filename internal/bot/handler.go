package bot

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	tele "gopkg.in/telebot.v3"

	"github.com/eliseohh/welcomebot/internal/intake"
	"github.com/eliseohh/welcomebot/internal/profile"
	"github.com/eliseohh/welcomebot/internal/questionnaire"
)

type Bot struct {
	api     *tele.Bot
	service *intake.Service
	log     *zap.Logger
	selfID  int64
	pick    func(n int) int
}

type Config struct {
	Token       string
	PollTimeout time.Duration
}

var htmlOpts = &tele.SendOptions{ParseMode: tele.ModeHTML}

func New(cfg Config, service *intake.Service, logger *zap.Logger) (*Bot, error) {
	pref := tele.Settings{
		Token:   cfg.Token,
		Poller:  tele.NewMiddlewarePoller(&tele.LongPoller{Timeout: cfg.PollTimeout}, coalesceJoins),
		OnError: logTelegramError(logger),
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		api:     b,
		service: service,
		log:     logger,
		selfID:  b.Me.ID,
		pick:    rand.Intn,
	}
	bot.register()
	return bot, nil
}

// logTelegramError reports errors raised outside any handler, such as
// polling failures. Handler errors are already logged by logUpdates.
func logTelegramError(logger *zap.Logger) func(error, tele.Context) {
	return func(err error, c tele.Context) {
		if c != nil {
			return
		}
		logger.Error("telegram error", zap.Error(err))
	}
}

func (b *Bot) Start() {
	b.log.Info("bot started", zap.String("username", b.api.Me.Username))
	b.api.Start()
}

func (b *Bot) Stop() {
	b.api.Stop()
}

func (b *Bot) register() {
	b.api.Use(b.logUpdates)

	b.api.Handle("/start", b.handleHelp)
	b.api.Handle("/help", b.handleHelp)
	b.api.Handle("/info", b.handleInfo)
	b.api.Handle("/add", b.handleAdd)
	b.api.Handle("/edit", b.handleEdit)
	b.api.Handle("/motto", b.handleMotto)

	b.api.Handle(tele.OnUserJoined, b.handleJoined)
	// Plain chatter is ignored; only replies to the welcome message count.
	b.api.Handle(tele.OnText, b.handleText)
}

const (
	helpText = "I greet new members and keep everyone's answers.\n" +
		"/info – list of members\n" +
		"/info all – everything about everyone\n" +
		"/info @username – one member\n" +
		"/add @username – add someone by hand\n" +
		"/edit @username – change someone's answers\n" +
		"/motto – words to live by"

	addUsage = "Usage of /add:\n" +
		"/add @username\n" +
		"number: value\n" +
		"number: value\n\n" +
		"Example:\n" +
		"/add @user123\n" +
		"1: Avdotya\n" +
		"2: 25\n" +
		"5: Programmer"

	editUsage = "Usage of /edit:\n" +
		"/edit @username\n" +
		"number. new value\n" +
		"number. new value\n\n" +
		"Example:\n" +
		"/edit @Superchel\n" +
		"2. 25\n" +
		"5. Programmer\n\n" +
		"An empty value removes the answer."

	failureText = "Something went wrong, please try again later."
)

var mottos = []string{
	"Our club is the best club!!!",
	"Figures on the shelf, friends in the chat.",
	"We don't hide our stash offshore, only behind the box sets.",
	"Strict hierarchy: scale figures for the bosses, prize figures for the soldiers.",
	"The only thing we launder is the dust off our shelves.",
	"We'll make you an offer you can't refuse: preorders close tonight.",
	"Our sworn enemy is a cat on the display shelf.",
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

func (b *Bot) handleMotto(c tele.Context) error {
	return c.Reply(mottos[b.pick(len(mottos))])
}

// /info, /info all, /info @username
func (b *Bot) handleInfo(c tele.Context) error {
	args, _ := splitCommand(c.Message().Text)
	req := intake.Request{Flow: intake.FlowInfo}
	if len(args) > 0 {
		if isFullRoster(args[0]) {
			req.Full = true
		} else {
			req.Target = args[0]
		}
	}

	res, err := b.service.Dispatch(req)
	if err != nil {
		return b.replyError(c, req, res, err)
	}
	return b.reply(c, res.Chunks...)
}

// /add @username + lines
func (b *Bot) handleAdd(c tele.Context) error {
	args, body := splitCommand(c.Message().Text)
	if len(args) < 1 {
		return c.Reply(addUsage)
	}
	req := intake.Request{Flow: intake.FlowAdd, Target: args[0], Body: body}

	res, err := b.service.Dispatch(req)
	if err != nil {
		return b.replyError(c, req, res, err)
	}
	b.log.Info("profile added", zap.String("username", res.Profile.Username), zap.Int64("profile_id", res.Profile.ID))
	return b.reply(c, "✅ Added:\n\n"+res.Chunks[0])
}

// /edit @username + lines
func (b *Bot) handleEdit(c tele.Context) error {
	args, body := splitCommand(c.Message().Text)
	if len(args) < 1 {
		return c.Reply(editUsage)
	}
	req := intake.Request{Flow: intake.FlowEdit, Target: args[0], Body: body}

	res, err := b.service.Dispatch(req)
	if err != nil {
		return b.replyError(c, req, res, err)
	}
	b.log.Info("profile edited", zap.Int64("profile_id", res.Profile.ID))
	return b.reply(c, "✅ Updated:\n\n"+res.Chunks[0])
}

func (b *Bot) handleText(c tele.Context) error {
	m := c.Message()
	if !b.isQuestionnaireReply(m) {
		return nil
	}
	u := c.Sender()
	if u == nil || u.IsBot {
		return nil
	}

	req := intake.Request{
		Flow: intake.FlowOnboarding,
		Sender: intake.Sender{
			ID:        u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		},
		Body: m.Text,
	}
	res, err := b.service.Dispatch(req)
	if err != nil {
		return b.replyError(c, req, res, err)
	}
	b.log.Info("answers saved", zap.Int64("sender_id", u.ID), zap.Ints("questions", res.Saved))
	return b.reply(c, res.Chunks...)
}

func (b *Bot) handleJoined(c tele.Context) error {
	m := c.Message()
	var members []tele.User
	switch {
	case coalesced(m):
		members = m.UsersJoined
	case m.UserJoined != nil:
		// telebot's own fan-out: one call per member.
		members = []tele.User{*m.UserJoined}
	default:
		members = m.UsersJoined
	}

	for _, u := range members {
		if u.IsBot {
			continue
		}
		p := profile.Profile{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
		if err := c.Send(questionnaire.Welcome(questionnaire.Mention(p)), htmlOpts); err != nil {
			return err
		}
		b.log.Debug("welcomed member", zap.Int64("user_id", u.ID))
	}
	return nil
}

// coalesceJoins points UserJoined at the first entry of new_chat_members so
// telebot dispatches the join once instead of once per member. Its fan-out
// loop rewrites UserJoined while earlier handlers may still be reading it.
func coalesceJoins(u *tele.Update) bool {
	if m := u.Message; m != nil && len(m.UsersJoined) > 0 {
		m.UserJoined = &m.UsersJoined[0]
	}
	return true
}

func coalesced(m *tele.Message) bool {
	return len(m.UsersJoined) > 0 && m.UserJoined == &m.UsersJoined[0]
}

func (b *Bot) isQuestionnaireReply(m *tele.Message) bool {
	if m == nil || m.ReplyTo == nil {
		return false
	}
	if !strings.Contains(m.ReplyTo.Text, questionnaire.WelcomeMarker) {
		return false
	}
	if b.selfID == 0 {
		return true
	}
	return m.ReplyTo.Sender != nil && m.ReplyTo.Sender.ID == b.selfID
}

// replyError turns service errors into chat answers. Only unexpected
// errors are returned to telebot.
func (b *Bot) replyError(c tele.Context, req intake.Request, res intake.Result, err error) error {
	name := html.EscapeString(strings.TrimPrefix(req.Target, "@"))
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return b.reply(c, fmt.Sprintf("User @%s not found.", name))

	case errors.Is(err, intake.ErrExists):
		return b.reply(c, fmt.Sprintf("User @%s already exists. Use /edit to change their info.", name))

	case errors.Is(err, intake.ErrFormat):
		switch req.Flow {
		case intake.FlowOnboarding:
			return c.Reply(questionnaire.FormatHint)
		case intake.FlowEdit:
			if len(res.Chunks) > 0 {
				return b.reply(c, fmt.Sprintf("Current info about @%s:\n\n%s\n\n%s", name, res.Chunks[0], html.EscapeString(editUsage)))
			}
			return c.Reply(editUsage)
		default:
			return c.Reply(addUsage)
		}

	case errors.Is(err, intake.ErrUsage):
		switch req.Flow {
		case intake.FlowEdit:
			return c.Reply(editUsage)
		case intake.FlowAdd:
			return c.Reply(addUsage)
		default:
			return c.Reply(helpText)
		}
	}

	if replyErr := c.Reply(failureText); replyErr != nil {
		b.log.Warn("failed to report error", zap.Error(replyErr))
	}
	return err
}

// reply sends each chunk as an HTML reply to the triggering message.
func (b *Bot) reply(c tele.Context, chunks ...string) error {
	for _, chunk := range chunks {
		if err := c.Reply(chunk, htmlOpts); err != nil {
			return err
		}
	}
	return nil
}

// splitCommand separates "/edit @ann\n1. x" into the words following the
// command on its first line and the lines after it.
func splitCommand(text string) (args []string, body string) {
	head, body, _ := strings.Cut(text, "\n")
	fields := strings.Fields(head)
	if len(fields) > 0 {
		fields = fields[1:]
	}
	return fields, body
}

func isFullRoster(arg string) bool {
	switch strings.ToLower(arg) {
	case "all", "opg":
		return true
	}
	return false
}
