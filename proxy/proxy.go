// Package proxy implements a MITM proxy that injects the content script into
// web pages so that the blocked web standards get disabled in the browser.
package proxy

import (
	"fmt"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/stdblock/stdblock"
	"github.com/stdblock/stdblock/rulelist"
	"github.com/stdblock/stdblock/rules"
)

const sessionPropKey = "session"

var defaultInjectionsHost = "injections.stdblock.example"

// Config contains the MITM proxy configuration
type Config struct {
	// Config of the MITM proxy
	ProxyConfig gomitmproxy.Config

	// Paths to the block rule lists
	RulesPaths map[int]string

	// InjectionHost is used for injecting the content script into web pages.
	//
	// Here's how it works:
	// * The proxy injects `<script src="//INJECTIONS_HOST/content-script.js?hostname=HOSTNAME&ids=IDS&ts=TS"></script>`
	// * Proxy handles requests to this host
	// * The content script content depends on the standards blocked for the page hostname
	InjectionHost string

	// StandardScripts maps a standard identifier to the JS snippet that
	// disables that standard in the page.
	StandardScripts map[int]string

	// If true, we will serve the content-script compressed
	// This is useful for the case when the proxy is on a public server,
	// as it saves some data.
	CompressContentScript bool
}

// String - server's configuration description
func (c *Config) String() string {
	str := ""
	str += fmt.Sprintf("Listen addr: %s\n", c.ProxyConfig.ListenAddr.String())
	str += fmt.Sprintf("MITM status: %v\n", c.ProxyConfig.MITMConfig != nil)
	str += fmt.Sprintf("Run as HTTPS proxy: %v\n", c.ProxyConfig.TLSConfig != nil)

	if c.ProxyConfig.Username != "" {
		str += fmt.Sprintf("Proxy auth: %s/%s\n", c.ProxyConfig.Username, c.ProxyConfig.Password)
	}
	if c.ProxyConfig.APIHost != "" {
		str += fmt.Sprintf("API host: %s\n", c.ProxyConfig.APIHost)
	}

	if len(c.RulesPaths) > 0 {
		str += fmt.Sprintf("Rule lists: %d\n", len(c.RulesPaths))
		for i, v := range c.RulesPaths {
			str += fmt.Sprintf("%d: %s\n", i, v)
		}
	}

	str += fmt.Sprintf("Standard scripts: %d\n", len(c.StandardScripts))

	return str
}

// Server contains the current server state
type Server struct {
	// the MITM proxy server instance
	proxyServer *gomitmproxy.Proxy

	// blocking engine
	engine *stdblock.BlockEngine

	// matcher compiles and caches the rules' patterns
	matcher *rules.Matcher

	// time when the server was created
	createdAt time.Time

	Config // Server configuration
}

// NewServer creates a new instance of the MITM server
func NewServer(config Config) (*Server, error) {
	log.Info("Initializing the proxy server:\n%s", config.String())

	if config.InjectionHost == "" {
		config.InjectionHost = defaultInjectionsHost
	}

	s := &Server{
		createdAt: time.Now(),
		matcher:   rules.NewMatcher(),
		Config:    config,
	}

	engine, err := buildEngine(s.matcher, config)
	if err != nil {
		return nil, err
	}

	s.engine = engine
	s.ProxyConfig.OnRequest = s.onRequest
	s.ProxyConfig.OnResponse = s.onResponse
	s.ProxyConfig.OnConnect = s.onConnect
	s.proxyServer = gomitmproxy.NewProxy(s.ProxyConfig)
	return s, nil
}

// Start starts the proxy server
func (s *Server) Start() error {
	return s.proxyServer.Start()
}

// Close stops the proxy server
func (s *Server) Close() {
	s.proxyServer.Close()
}

// buildEngine builds a new blocking engine
func buildEngine(m *rules.Matcher, config Config) (*stdblock.BlockEngine, error) {
	var lists []rulelist.RuleList

	for listID, path := range config.RulesPaths {
		list, err := rulelist.NewFileRuleList(listID, path, m)
		if err != nil {
			return nil, fmt.Errorf("failed to create rule list %d: %s", listID, err)
		}
		lists = append(lists, list)
	}

	ruleStorage, err := rulelist.NewRuleStorage(lists)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize rule storage: %s", err)
	}

	return stdblock.NewBlockEngine(ruleStorage), nil
}
