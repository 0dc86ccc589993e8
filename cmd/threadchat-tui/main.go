// Command threadchat-tui is a terminal client. It pulls a full snapshot over
// HTTP, then keeps a local projected forest in sync by merging broadcast
// frames from the websocket, one message at a time.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"threadchat/pkg/client"
	"threadchat/pkg/hub"
	"threadchat/pkg/models"
)

var (
	appStyle    = lipgloss.NewStyle().Padding(1, 2)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).PaddingBottom(1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5A5A5A")).PaddingTop(1)
	authorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	timeStyle   = lipgloss.NewStyle().Faint(true)
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

// wire frames, matching the server's envelope
type inboundFrame struct {
	Event   string            `json:"event"`
	Message *models.Populated `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type outboundFrame struct {
	Event    string `json:"event"`
	Body     string `json:"body"`
	Author   string `json:"author,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// tea messages
type frameMsg inboundFrame
type connClosedMsg struct{ err error }

type model struct {
	conn   *websocket.Conn
	author string

	forest   client.Forest
	order    []string // visible node ids, render order, for reply targeting
	replyTo  string
	lastErr  string
	viewport viewport.Model
	textarea textarea.Model
	frames   chan inboundFrame
	ready    bool
	width    int
}

func main() {
	server := flag.String("server", "http://localhost:8080", "chat server base URL")
	author := flag.String("author", "", "author name for sent messages")
	flag.Parse()

	forest, err := fetchSnapshot(*server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
		os.Exit(1)
	}

	conn, err := dialWS(*server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "websocket dial failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	m := initialModel(conn, *author, forest)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running program: %v\n", err)
		os.Exit(1)
	}
}

// fetchSnapshot loads the populated root forest over HTTP.
func fetchSnapshot(server string) (client.Forest, error) {
	resp, err := http.Get(server + "/messages")
	if err != nil {
		return client.New(), err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return client.New(), fmt.Errorf("GET /messages: %s", resp.Status)
	}
	var trees []*models.Populated
	if err := json.NewDecoder(resp.Body).Decode(&trees); err != nil {
		return client.New(), err
	}
	return client.FromSnapshot(trees), nil
}

// dialWS converts the server base URL to a ws:// endpoint and connects.
func dialWS(server string) (*websocket.Conn, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

func initialModel(conn *websocket.Conn, author string, forest client.Forest) model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = "│ "
	ta.Focus()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.CharLimit = 1024

	return model{
		conn:     conn,
		author:   author,
		forest:   forest,
		textarea: ta,
		frames:   make(chan inboundFrame),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		readLoop(m.conn, m.frames),
		nextFrame(m.frames),
	)
}

// readLoop drains the websocket into the frame channel until it closes.
func readLoop(conn *websocket.Conn, frames chan inboundFrame) tea.Cmd {
	return func() tea.Msg {
		for {
			var f inboundFrame
			if err := conn.ReadJSON(&f); err != nil {
				return connClosedMsg{err: err}
			}
			frames <- f
		}
	}
}

// nextFrame hands one decoded frame to Update.
func nextFrame(frames chan inboundFrame) tea.Cmd {
	return func() tea.Msg {
		return frameMsg(<-frames)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			m.replyTo = ""
			m.refresh()
			return m, tea.Batch(tiCmd, vpCmd)
		case tea.KeyCtrlR:
			m.cycleReplyTarget()
			m.refresh()
			return m, tea.Batch(tiCmd, vpCmd)
		case tea.KeyEnter:
			return m.send(tiCmd, vpCmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if !m.ready {
			m.viewport = viewport.New(msg.Width-6, msg.Height-9)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 6
			m.viewport.Height = msg.Height - 9
		}
		m.textarea.SetWidth(msg.Width - 6)
		m.refresh()

	case frameMsg:
		switch msg.Event {
		case hub.EventBroadcast:
			if msg.Message != nil {
				m.forest = client.Merge(m.forest, msg.Message)
				m.lastErr = ""
				m.refresh()
				m.viewport.GotoBottom()
			}
		case hub.EventError:
			m.lastErr = msg.Error
		}
		return m, tea.Batch(tiCmd, vpCmd, nextFrame(m.frames))

	case connClosedMsg:
		m.lastErr = "connection closed"
		if msg.err != nil {
			m.lastErr = "connection closed: " + msg.err.Error()
		}
		return m, tea.Batch(tiCmd, vpCmd)
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m model) send(cmds ...tea.Cmd) (tea.Model, tea.Cmd) {
	body := strings.TrimSpace(m.textarea.Value())
	if body == "" {
		return m, tea.Batch(cmds...)
	}
	out := outboundFrame{Event: hub.EventSubmit, Body: body, Author: m.author, ParentID: m.replyTo}
	if err := m.conn.WriteJSON(out); err != nil {
		m.lastErr = "send failed: " + err.Error()
		return m, tea.Batch(cmds...)
	}
	m.textarea.Reset()
	m.replyTo = ""
	return m, tea.Batch(cmds...)
}

// cycleReplyTarget advances the reply target through the visible messages in
// render order, wrapping back to "no target".
func (m *model) cycleReplyTarget() {
	if len(m.order) == 0 {
		m.replyTo = ""
		return
	}
	if m.replyTo == "" {
		m.replyTo = m.order[0]
		return
	}
	for i, id := range m.order {
		if id == m.replyTo {
			if i+1 < len(m.order) {
				m.replyTo = m.order[i+1]
			} else {
				m.replyTo = ""
			}
			return
		}
	}
	m.replyTo = m.order[0]
}

// refresh re-renders the forest into the viewport and rebuilds the visible
// order used for reply targeting.
func (m *model) refresh() {
	var b strings.Builder
	m.order = m.order[:0]
	for _, root := range m.forest.Trees() {
		m.renderTree(&b, root, 0)
	}
	m.viewport.SetContent(b.String())
}

func (m *model) renderTree(b *strings.Builder, p *models.Populated, depth int) {
	m.order = append(m.order, p.ID)

	indent := strings.Repeat("  ", depth)
	author := p.Author
	if author == "" {
		author = models.AnonymousAuthor
	}
	ts := timeStyle.Render(time.Unix(0, p.CreatedTS).Format("15:04"))
	head := indent + authorStyle.Render(author) + " " + ts
	if p.ID == m.replyTo {
		head += " " + replyStyle.Render("← replying")
	}
	b.WriteString(head + "\n")
	b.WriteString(indent + p.Body + "\n")

	for _, c := range p.Children {
		m.renderTree(b, c, depth+1)
	}
}

func (m model) View() string {
	if !m.ready {
		return "\n  Connecting..."
	}

	title := titleStyle.Render("threadchat")
	status := "Enter to send • Ctrl+R cycle reply target • Esc clear • Ctrl+C quit"
	if m.replyTo != "" {
		status = replyStyle.Render("replying to "+m.replyTo) + " • " + status
	}
	if m.lastErr != "" {
		status = errStyle.Render(m.lastErr) + " • " + status
	}

	return appStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.viewport.View(),
		lipgloss.NewStyle().PaddingTop(1).Render(m.textarea.View()),
		statusStyle.Render(status),
	))
}
