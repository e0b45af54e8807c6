// Package interactive provides the interactive console of breadcrumbs.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/bridge"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/discovery"
)

// Console reads commands and applies them to a running runtime.
type Console struct {
	rl  *readline.Instance
	out io.Writer

	mu      sync.Mutex
	rt      *component.Runtime
	watched map[string]bool
}

// New creates a console reading from the terminal.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "breadcrumbs> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout(), watched: make(map[string]bool)}, nil
}

// NewWithWriter creates a console without a terminal. Commands are fed
// through Exec.
func NewWithWriter(w io.Writer) *Console {
	return &Console{out: w, watched: make(map[string]bool)}
}

// Stdout returns a writer that does not clobber the prompt. Use it for
// log output.
func (c *Console) Stdout() io.Writer {
	if c.rl != nil {
		return c.rl.Stdout()
	}
	return c.out
}

// Bind attaches the runtime commands operate on.
func (c *Console) Bind(rt *component.Runtime) {
	c.mu.Lock()
	c.rt = rt
	c.mu.Unlock()
}

func (c *Console) runtime() *component.Runtime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rt
}

// Run reads commands until quit, EOF or ctx is done. cancel is called when
// the user leaves.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	if c.rl == nil {
		return
	}
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Exec(ctx, line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line and reports whether the user asked to quit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	if cmd == "quit" || cmd == "exit" || cmd == "q" {
		fmt.Fprintln(c.out, "Exiting...")
		return true
	}
	if cmd == "help" || cmd == "?" {
		c.printHelp()
		return false
	}

	rt := c.runtime()
	if rt == nil {
		fmt.Fprintln(c.out, "Runtime not ready")
		return false
	}

	switch cmd {
	case "kinds", "k":
		c.cmdKinds(rt)
	case "status", "s":
		c.cmdStatus(rt)
	case "publish", "pub", "p":
		c.cmdPublish(rt, args)
	case "watch", "w":
		c.cmdWatch(rt, args)
	case "refresh", "r":
		rt.Bus().Publish(bridge.RefreshServerList, attrs.New())
		fmt.Fprintln(c.out, "Discovery requested")
	case "connect", "c":
		c.cmdConnect(rt, args)
	case "send":
		c.cmdSend(rt, args)
	case "browse", "b":
		c.cmdBrowse(ctx, args)
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
breadcrumbs Commands:
  Runtime:
    kinds                   - List registered component kinds
    status                  - Show component and bridge state
    publish <id> [k=v ...]  - Publish a message on the bus
    watch <id>              - Print every message published under id

  Network:
    refresh                 - Start a discovery round on every client
    connect <n> [update-id] - Connect clients to server n of the last round
    send <id> <data...>     - Send data over the network as NETWORK_BROADCAST
    browse [seconds]        - List servers advertised over mDNS

  Other:
    help                    - Show this help
    quit                    - Exit`)
}

func (c *Console) cmdKinds(rt *component.Runtime) {
	for _, kind := range rt.Registry().Kinds() {
		fmt.Fprintf(c.out, "  %s\n", kind)
	}
}

func (c *Console) cmdStatus(rt *component.Runtime) {
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tSTATE\tDETAIL")
	for _, st := range rt.States() {
		detail := ""
		if comp, ok := rt.Instance(st.Name); ok {
			detail = describe(comp)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.Name, st.Kind, st.State, detail)
	}
	tw.Flush()
}

func describe(comp component.Component) string {
	switch v := comp.(type) {
	case *bridge.Client:
		s := fmt.Sprintf("%s round=%d servers=%v", v.State(), v.UpdateID(), v.Servers())
		if addr := v.RemoteAddr(); addr != nil {
			s += " remote=" + addr.String()
		}
		return s
	case *bridge.Server:
		if addr := v.TCPAddr(); addr != nil {
			return fmt.Sprintf("tcp=%s discovery=%v connections=%d", addr, v.DiscoveryAddr(), v.ConnectionCount())
		}
	}
	return ""
}

func (c *Console) cmdPublish(rt *component.Runtime, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "Usage: publish <id> [key=value ...]")
		return
	}
	a, err := ParseAttributes(args[1:])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	rt.Bus().Publish(args[0], a)
	fmt.Fprintf(c.out, "Published %s %s\n", args[0], a.Summary())
}

// ParseAttributes converts key=value pairs. Values that parse as integers,
// floats or booleans keep that type; everything else is a string.
func ParseAttributes(pairs []string) (attrs.Attributes, error) {
	a := attrs.New()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return a, fmt.Errorf("expected key=value, got %q", pair)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			a.SetInt(key, n)
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			a.SetFloat(key, f)
		} else if b, err := strconv.ParseBool(value); err == nil {
			a.SetBool(key, b)
		} else {
			a.SetString(key, value)
		}
	}
	return a, nil
}

func (c *Console) cmdWatch(rt *component.Runtime, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: watch <id>")
		return
	}
	id := args[0]

	c.mu.Lock()
	already := c.watched[id]
	c.watched[id] = true
	c.mu.Unlock()

	if already {
		fmt.Fprintf(c.out, "Already watching %s\n", id)
		return
	}
	rt.Bus().Subscribe(id, func(a attrs.Attributes) error {
		fmt.Fprintf(c.out, "[%s] %s %s\n", time.Now().Format("15:04:05.000"), id, a.Summary())
		return nil
	})
	fmt.Fprintf(c.out, "Watching %s\n", id)
}

func (c *Console) cmdConnect(rt *component.Runtime, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.out, "Usage: connect <n> [update-id]")
		return
	}
	index, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid server index: %s\n", args[0])
		return
	}

	a := attrs.Of(bridge.AttrID, index)
	if len(args) == 2 {
		updateID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(c.out, "Invalid update id: %s\n", args[1])
			return
		}
		a.SetInt(bridge.AttrUpdateID, updateID)
	}
	rt.Bus().Publish(bridge.ConnectToServer, a)
	fmt.Fprintf(c.out, "Connect to server %d requested\n", index)
}

func (c *Console) cmdSend(rt *component.Runtime, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: send <id> <data...>")
		return
	}
	rt.Bus().Publish(bridge.NetworkBroadcast, attrs.Of(
		bridge.AttrID, args[0],
		bridge.AttrData, strings.Join(args[1:], " "),
	))
	fmt.Fprintf(c.out, "Sent %s\n", args[0])
}

func (c *Console) cmdBrowse(ctx context.Context, args []string) {
	timeout := discovery.BrowseTimeout
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			fmt.Fprintf(c.out, "Invalid duration: %s\n", args[0])
			return
		}
		timeout = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{})
	defer browser.Stop()

	servers, err := browser.BrowseServers(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Browse failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "Browsing %s for %s...\n", discovery.ServiceType, timeout)
	n := 0
	for svc := range servers {
		n++
		fmt.Fprintf(c.out, "  %s  %s:%d  group=%s dport=%d addrs=%v\n",
			svc.InstanceName, svc.Host, svc.Port, svc.Group, svc.DiscoveryPort, svc.Addresses)
	}
	fmt.Fprintf(c.out, "%d server(s) found\n", n)
}
