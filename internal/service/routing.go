package service

import (
	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// RouteFor returns the top-level screen for a session: the login screen
// when signed out, the scanner otherwise.
func RouteFor(sess domainauth.Session) ports.Route {
	if !sess.IsAuthenticated() {
		return ports.RouteLogin
	}
	return ports.RouteScanner
}
