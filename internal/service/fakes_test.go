package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/threadmail/internal/config"
	"github.com/spec-kit/threadmail/internal/events"
	"github.com/spec-kit/threadmail/internal/repository"
)

func restError(status int) error {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: status, Status: fmt.Sprintf("%d", status)},
		ResponseBody: []byte(`{}`),
	}
}

type webhookCall struct {
	URL      string
	ThreadID string
	Params   *discordgo.WebhookParams
}

type sentMessage struct {
	ChannelID string
	Content   string
}

// fakePlatform records calls and serves canned platform state.
type fakePlatform struct {
	mu sync.Mutex

	guilds     map[string]*discordgo.Guild
	channels   map[string]*discordgo.Channel
	webhooks   map[string][]*discordgo.Webhook
	userGuilds []*discordgo.UserGuild
	botGuilds  []*discordgo.UserGuild
	me         map[string]*discordgo.User
	roleConns  map[string]*discordgo.ApplicationRoleConnection

	errs   map[string]error
	nextID int

	createdThreads  []*discordgo.Channel
	deletedChannels []string
	archived        []string
	sent            []sentMessage
	deletedMessages []string
	webhookCalls    []webhookCall
	createdHooks    []string
	dmOpened        []string
	roleUpdates     []*discordgo.ApplicationRoleConnection
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		guilds:    map[string]*discordgo.Guild{},
		channels:  map[string]*discordgo.Channel{},
		webhooks:  map[string][]*discordgo.Webhook{},
		me:        map[string]*discordgo.User{},
		roleConns: map[string]*discordgo.ApplicationRoleConnection{},
		errs:      map[string]error{},
	}
}

func (f *fakePlatform) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakePlatform) err(method string) error {
	return f.errs[method]
}

func (f *fakePlatform) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakePlatform) messagesIn(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChannelID == channelID {
			out = append(out, m.Content)
		}
	}
	return out
}

func (f *fakePlatform) Guild(_ context.Context, guildID string) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("Guild"); err != nil {
		return nil, err
	}
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, restError(http.StatusNotFound)
	}
	return g, nil
}

func (f *fakePlatform) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("Channel"); err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, restError(http.StatusNotFound)
	}
	return ch, nil
}

func (f *fakePlatform) CreatePrivateThread(_ context.Context, parentID, name string, _ int) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("CreatePrivateThread"); err != nil {
		return nil, err
	}
	thread := &discordgo.Channel{
		ID:       f.id("thread"),
		ParentID: parentID,
		Name:     name,
		Type:     discordgo.ChannelTypeGuildPrivateThread,
	}
	f.channels[thread.ID] = thread
	f.createdThreads = append(f.createdThreads, thread)
	return thread, nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("DeleteChannel"); err != nil {
		return err
	}
	delete(f.channels, channelID)
	f.deletedChannels = append(f.deletedChannels, channelID)
	return nil
}

func (f *fakePlatform) LockAndArchiveThread(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("LockAndArchiveThread"); err != nil {
		return err
	}
	f.archived = append(f.archived, threadID)
	return nil
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("SendMessage"); err != nil {
		return nil, err
	}
	if err := f.err("SendMessage:" + channelID); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Content: msg.Content})
	return &discordgo.Message{ID: f.id("msg"), ChannelID: channelID, Content: msg.Content}, nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("DeleteMessage"); err != nil {
		return err
	}
	f.deletedMessages = append(f.deletedMessages, messageID)
	return nil
}

func (f *fakePlatform) ChannelWebhooks(_ context.Context, channelID string) ([]*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("ChannelWebhooks"); err != nil {
		return nil, err
	}
	return f.webhooks[channelID], nil
}

func (f *fakePlatform) CreateWebhook(_ context.Context, channelID, name string) (*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("CreateWebhook"); err != nil {
		return nil, err
	}
	hook := &discordgo.Webhook{ID: f.id("hook"), Token: "tok", Name: name, ChannelID: channelID}
	f.webhooks[channelID] = append(f.webhooks[channelID], hook)
	f.createdHooks = append(f.createdHooks, hook.ID)
	return hook, nil
}

func (f *fakePlatform) ExecuteWebhook(_ context.Context, webhookURL, threadID string, params *discordgo.WebhookParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("ExecuteWebhook"); err != nil {
		return err
	}
	f.webhookCalls = append(f.webhookCalls, webhookCall{URL: webhookURL, ThreadID: threadID, Params: params})
	return nil
}

func (f *fakePlatform) OpenDM(_ context.Context, userID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("OpenDM"); err != nil {
		return nil, err
	}
	f.dmOpened = append(f.dmOpened, userID)
	return &discordgo.Channel{ID: "dm-" + userID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakePlatform) BotGuilds(ctx context.Context) ([]*discordgo.UserGuild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("BotGuilds"); err != nil {
		return nil, err
	}
	return f.botGuilds, nil
}

func (f *fakePlatform) UserGuilds(_ context.Context, accessToken string) ([]*discordgo.UserGuild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("UserGuilds"); err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, restError(http.StatusUnauthorized)
	}
	return f.userGuilds, nil
}

func (f *fakePlatform) CurrentUser(_ context.Context, accessToken string) (*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.me[accessToken]
	if !ok {
		return nil, restError(http.StatusUnauthorized)
	}
	return u, nil
}

func (f *fakePlatform) RoleConnection(_ context.Context, accessToken string) (*discordgo.ApplicationRoleConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("RoleConnection"); err != nil {
		return nil, err
	}
	conn, ok := f.roleConns[accessToken]
	if !ok {
		return nil, restError(http.StatusNotFound)
	}
	return conn, nil
}

func (f *fakePlatform) UpdateRoleConnection(_ context.Context, accessToken string, conn *discordgo.ApplicationRoleConnection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("UpdateRoleConnection"); err != nil {
		return err
	}
	f.roleConns[accessToken] = conn
	f.roleUpdates = append(f.roleUpdates, conn)
	return nil
}

// flakyStore fails reads or writes of keys with a given prefix.
type flakyStore struct {
	*repository.MemoryStore
	failSetPrefix string
	failGetPrefix string
}

func (s *flakyStore) Get(ctx context.Context, key string, dest any) error {
	if s.failGetPrefix != "" && strings.HasPrefix(key, s.failGetPrefix) {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Get(ctx, key, dest)
}

func (s *flakyStore) Set(ctx context.Context, key string, value any) error {
	if s.failSetPrefix != "" && strings.HasPrefix(key, s.failSetPrefix) {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type harness struct {
	store      *flakyStore
	platform   *fakePlatform
	users      repository.UserRepository
	tickets    repository.TicketRepository
	guilds     repository.GuildRepository
	cooldowns  repository.CooldownRepository
	dispatcher events.Dispatcher
	published  []events.Event
	now        time.Time
	ticketSvc  *TicketService
	relaySvc   *RelayService
}

func newHarness() *harness {
	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	h := &harness{
		store:      store,
		platform:   newFakePlatform(),
		users:      repository.NewUserRepository(store),
		tickets:    repository.NewTicketRepository(store),
		guilds:     repository.NewGuildRepository(store),
		cooldowns:  repository.NewCooldownRepository(store),
		dispatcher: events.NewInMemoryDispatcher(),
		now:        time.UnixMilli(1_700_000_000_000),
	}
	record := func(_ context.Context, e events.Event) error {
		h.published = append(h.published, e)
		return nil
	}
	h.dispatcher.Subscribe(events.EventTicketCreated, record)
	h.dispatcher.Subscribe(events.EventTicketClosed, record)
	h.dispatcher.Subscribe(events.EventMessageRelayed, record)

	h.ticketSvc = NewTicketService(TicketDependencies{
		UserRepo:     h.users,
		TicketRepo:   h.tickets,
		GuildRepo:    h.guilds,
		CooldownRepo: h.cooldowns,
		Platform:     h.platform,
		Dispatcher:   h.dispatcher,
		Config:       config.TicketConfig{CloseCooldownMinutes: 30, WebhookName: "TicketSystem", AutoArchiveMinutes: 10080},
		Clock:        func() time.Time { return h.now },
	})
	h.relaySvc = NewRelayService(RelayDependencies{
		UserRepo:   h.users,
		TicketRepo: h.tickets,
		GuildRepo:  h.guilds,
		Platform:   h.platform,
		Dispatcher: h.dispatcher,
	})

	h.platform.guilds["g1"] = &discordgo.Guild{ID: "g1", Name: "Guild One", SystemChannelID: "sys-1"}
	h.platform.channels["sys-1"] = &discordgo.Channel{ID: "sys-1", Type: discordgo.ChannelTypeGuildText}
	return h
}
