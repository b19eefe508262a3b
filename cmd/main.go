package main

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/mitm"
	goFlags "github.com/jessevdk/go-flags"
	"github.com/stdblock/stdblock"
	"github.com/stdblock/stdblock/proxy"
	"github.com/stdblock/stdblock/rulelist"
	"github.com/stdblock/stdblock/rules"
)

// Options -- console arguments
type Options struct {
	// Verbose - should we write debug-level log
	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true"`

	// LogOutput - path to the log file
	LogOutput string `short:"o" long:"output" description:"Path to the log file. If not set, it writes to stderr." default:""`

	// ListenAddr - server listen address
	ListenAddr string `short:"l" long:"listen" description:"Listen address." default:"0.0.0.0"`

	// ListenPort - server listen port
	ListenPort int `short:"p" long:"port" description:"Listen port. Zero value disables TCP and UDP listeners." default:"8080"`

	// TLSCertPath - path to the .crt with the certificate chain
	TLSCertPath string `short:"c" long:"ca-cert" description:"Path to a file with the root certificate."`

	// TLSKeyPath - path to the file with the private key
	TLSKeyPath string `short:"k" long:"ca-key" description:"Path to a file with the CA private key."`

	// RuleLists - paths to the block rule lists
	RuleLists []string `short:"f" long:"rules" description:"Path to the block rule list. Can be specified multiple times."`

	// ScriptsPath - path to the JSON file with the standard-disabling scripts
	ScriptsPath string `short:"s" long:"scripts" description:"Path to a JSON file that maps standard identifiers to JS snippets."`

	// Check - hostname or URL to check against the rules instead of running the proxy
	Check string `long:"check" description:"Print the blocked standard identifiers for the hostname or URL and exit."`

	// Proxy username
	ProxyUser string `short:"u" long:"username" description:"Proxy auth username. If specified, proxy authorization is required."`

	// ProxyPassword - proxy password
	ProxyPassword string `short:"a" long:"password" description:"Proxy auth password. If specified, proxy authorization is required."`

	// HTTPSProxy - if specified, start a HTTPS proxy. Otherwise, it will start an HTTP proxy.
	HTTPSProxy bool `short:"t" long:"https" description:"Run an HTTPS proxy (otherwise, it runs plain HTTP proxy)." optional:"yes" optional-value:"true"`

	// HTTPSHostname - server name for the HTTPS proxy.
	HTTPSHostname string `short:"n" long:"https-name" description:"Server name or IP address of the HTTPS proxy."`
}

func main() {
	var options Options
	var parser = goFlags.NewParser(&options, goFlags.Default)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*goFlags.Error); ok && flagsErr.Type == goFlags.ErrHelp {
			os.Exit(0)
		} else {
			os.Exit(1)
		}
	}

	run(options)
}

func run(options Options) {
	if options.Verbose {
		log.SetLevel(log.DEBUG)
	}
	if options.LogOutput != "" {
		// nolint: gosec
		file, err := os.OpenFile(options.LogOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("cannot create a log file: %s", err)
		}
		defer file.Close() //nolint
		log.SetOutput(file)
	}

	if options.Check != "" {
		runCheck(options)
		return
	}

	if options.TLSCertPath == "" || options.TLSKeyPath == "" {
		log.Fatalf("the root certificate and the CA private key must be specified")
	}

	log.Printf("starting proxy")

	config := createServerConfig(options)
	server, err := proxy.NewServer(config)
	if err != nil {
		log.Fatalf("failed to create new proxy server: %v", err)
	}

	err = server.Start()
	if err != nil {
		log.Fatalf("failed to start the proxy server: %v", err)
	}

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	<-signalChannel

	// CLOSE THE PROXY
	server.Close()
}

// runCheck loads the rule lists and prints the standard identifiers blocked
// for the specified hostname or URL.
func runCheck(options Options) {
	engine, err := buildEngine(options.RuleLists)
	if err != nil {
		log.Fatalf("failed to load the rules: %v", err)
	}

	var res *stdblock.BlockResult
	var matched bool
	if strings.Contains(options.Check, "//") {
		res, matched = engine.MatchURL(options.Check)
	} else {
		res, matched = engine.Match(options.Check)
	}

	if !matched {
		fmt.Println("no rules match")
		return
	}

	for _, r := range res.Rules {
		fmt.Printf("rule: %s\n", r.String())
	}
	fmt.Printf("blocked standards: %s\n", joinInts(res.StandardIDs))
}

func buildEngine(paths []string) (*stdblock.BlockEngine, error) {
	m := rules.NewMatcher()

	var lists []rulelist.RuleList
	for i, path := range paths {
		list, err := rulelist.NewFileRuleList(i+1, path, m)
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}

	storage, err := rulelist.NewRuleStorage(lists)
	if err != nil {
		return nil, err
	}

	return stdblock.NewBlockEngine(storage), nil
}

func joinInts(vals []int) string {
	strs := make([]string, 0, len(vals))
	for _, v := range vals {
		strs = append(strs, fmt.Sprintf("%d", v))
	}
	return strings.Join(strs, ", ")
}

func createServerConfig(options Options) proxy.Config {
	listenIP := net.ParseIP(options.ListenAddr)
	if listenIP == nil {
		log.Fatalf("cannot parse %s", options.ListenAddr)
	}

	mitmConfig := createMITMConfig(options)

	var tlsConfig *tls.Config
	if options.HTTPSProxy {
		if options.HTTPSHostname == "" {
			log.Fatalf("HTTPS hostname must be specified")
		}

		proxyCert, err := mitmConfig.GetOrCreateCert(options.HTTPSHostname)
		if err != nil {
			log.Fatalf("failed to generate HTTPS proxy certificate for %s: %v", options.HTTPSHostname, err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{*proxyCert},
			ServerName:   options.HTTPSHostname,
		}
	}

	config := proxy.Config{
		RulesPaths:            map[int]string{},
		StandardScripts:       loadStandardScripts(options.ScriptsPath),
		CompressContentScript: true,
	}
	for i, v := range options.RuleLists {
		config.RulesPaths[i+1] = v
	}

	addr := &net.TCPAddr{IP: listenIP, Port: options.ListenPort}
	config.ProxyConfig = gomitmproxy.Config{
		ListenAddr: addr,
		TLSConfig:  tlsConfig,

		Username: options.ProxyUser,
		Password: options.ProxyPassword,
		APIHost:  "stdblock",

		MITMConfig: mitmConfig,
	}

	return config
}

// loadStandardScripts reads the JSON file that maps standard identifiers to
// the JS snippets disabling them.
func loadStandardScripts(path string) map[int]string {
	if path == "" {
		return map[int]string{}
	}

	// nolint: gosec
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read the scripts file: %v", err)
	}

	scripts := map[int]string{}
	err = json.Unmarshal(data, &scripts)
	if err != nil {
		log.Fatalf("failed to parse the scripts file: %v", err)
	}

	return scripts
}

func createMITMConfig(options Options) *mitm.Config {
	tlsCert, err := tls.LoadX509KeyPair(options.TLSCertPath, options.TLSKeyPath)
	if err != nil {
		log.Fatalf("failed to load root CA: %v", err)
	}
	privateKey := tlsCert.PrivateKey.(*rsa.PrivateKey)

	x509c, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		log.Fatalf("invalid certificate: %v", err)
	}

	mitmConfig, err := mitm.NewConfig(x509c, privateKey, nil)
	if err != nil {
		log.Fatalf("failed to create MITM config: %v", err)
	}

	mitmConfig.SetValidity(time.Hour * 24 * 7) // generate certs valid for 7 days
	mitmConfig.SetOrganization("stdblock")     // cert organization
	return mitmConfig
}
