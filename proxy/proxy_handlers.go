package proxy

import (
	"net"
	"net/http"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// onRequest handles the outgoing HTTP requests
func (s *Server) onRequest(sess *gomitmproxy.Session) (*http.Request, *http.Response) {
	r := sess.Request()
	session := NewSession(sess.ID(), r)

	log.Debug("stdblock: id=%s: saving session", session.ID)
	sess.SetProp(sessionPropKey, session)

	if r.Method == http.MethodConnect {
		// Do nothing for CONNECT requests
		return nil, nil
	}

	if session.Request.Hostname == s.InjectionHost {
		return r, s.buildContentScript(session)
	}

	if s.shouldSuppressCache(session) {
		suppressCache(r)
	}

	return r, nil
}

// onResponse handles all the responses
func (s *Server) onResponse(sess *gomitmproxy.Session) *http.Response {
	v, ok := sess.GetProp(sessionPropKey)
	if !ok {
		log.Error("stdblock: id=%s: session not found", sess.ID())
		return nil
	}

	session, ok := v.(*Session)

	if !ok {
		log.Error("stdblock: id=%s: session not found (wrong type)", sess.ID())
		return nil
	}

	session.SetResponse(sess.Response())

	if !session.IsHTMLDocument() {
		return nil
	}

	// The content script is only injected into HTML documents, and only when
	// at least one rule matches the page hostname.
	res, matched := s.engine.MatchRequest(session.Request)
	if !matched {
		return nil
	}
	session.Result = res

	log.Debug(
		"stdblock: id=%s: disabling standards %v for %s",
		session.ID,
		res.StandardIDs,
		session.Request.Hostname,
	)

	err := s.injectContentScript(session)
	if err != nil {
		return proxyutil.NewErrorResponse(session.HTTPRequest, err)
	}
	return session.HTTPResponse
}

// onConnect - the only purpose is to intercept and suppress connections to InjectionHost
func (s *Server) onConnect(session *gomitmproxy.Session, proto string, addr string) net.Conn {
	host, _, err := net.SplitHostPort(addr)

	if err == nil && host == s.InjectionHost {
		return &proxyutil.NoopConn{}
	}

	return nil
}
