package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	cronv3 "github.com/robfig/cron/v3"
)

// Dispatcher periodically claims due notifications and hands them to a Sender.
type Dispatcher struct {
	claimer Claimer
	sender  Sender
	cron    *cronv3.Cron
	now     func() time.Time

	mu      sync.Mutex
	running bool
}

// NewDispatcher validates schedule (standard cron fields, optional seconds, or a
// descriptor like "@every 1m") and registers the tick.
func NewDispatcher(claimer Claimer, sender Sender, schedule string) (*Dispatcher, error) {
	parser := cronv3.NewParser(cronv3.SecondOptional | cronv3.Minute | cronv3.Hour | cronv3.Dom | cronv3.Month | cronv3.Dow | cronv3.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	d := &Dispatcher{
		claimer: claimer,
		sender:  sender,
		cron:    cronv3.New(cronv3.WithParser(parser)),
		now:     time.Now,
	}
	if _, err := d.cron.AddFunc(schedule, func() { d.Tick(context.Background()) }); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) Start() {
	log.Printf("[Dispatcher] starting reminder dispatch")
	d.cron.Start()
}

// Stop waits for a running tick to finish.
func (d *Dispatcher) Stop() {
	<-d.cron.Stop().Done()
}

// Tick delivers everything due now. Overlapping ticks are skipped. Delivery is
// at most once: claimed notifications are not offered again, so a failed send
// is logged and dropped. Returns the number of notifications sent.
func (d *Dispatcher) Tick(ctx context.Context) int {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return 0
	}
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	due, err := d.claimer.ClaimDue(ctx, d.now())
	if err != nil {
		log.Printf("[Dispatcher.Tick] claim error: %v", err)
		return 0
	}
	sent := 0
	for _, n := range due {
		if err := d.sender.Send(ctx, n); err != nil {
			log.Printf("[Dispatcher.Tick] send error for reminder %d: %v", n.ID, err)
			continue
		}
		sent++
	}
	return sent
}

/* ─── Senders ────────────────────────────────────────────────────────── */

// LogSender writes notifications to the log.
type LogSender struct{}

func (LogSender) Send(_ context.Context, n Notification) error {
	log.Printf("[reminder] user=%d %s %s", n.UserID, n.Title, n.Body)
	return nil
}

// telegramAPI is the part of the bot client used for delivery.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender posts notifications to one Telegram chat.
type TelegramSender struct {
	api    telegramAPI
	chatID int64
}

func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Printf("[TelegramSender] authorized as %s", bot.Self.UserName)
	return &TelegramSender{api: bot, chatID: chatID}, nil
}

func (t *TelegramSender) Send(_ context.Context, n Notification) error {
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("*%s*\n%s", n.Title, n.Body))
	msg.ParseMode = "Markdown"
	_, err := t.api.Send(msg)
	return err
}
