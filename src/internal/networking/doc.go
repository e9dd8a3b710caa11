// Package networking redirects DNS traffic arriving on local interfaces to the
// interceptor listener.
//
// Redirector installs a dedicated nat chain holding one REDIRECT rule per
// protocol and local address, and jumps to it from PREROUTING. Rules are
// rendered from a configurable template with {{proto}}, {{addr}} and {{port}}
// placeholders:
//
//	r, err := networking.NewRedirector(networking.RedirectOptions{
//		Interfaces: []string{"br0"},
//		Rule:       config.DefaultRedirectRule,
//		Port:       5353,
//	})
//	if err := r.Enable(); err != nil { ... }
//	defer r.Disable()
//
// Interface helpers wrap netlink links and list their addresses.
package networking
