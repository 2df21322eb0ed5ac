//go:build !no_mdns

package main

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"

	"xbee-go-home/internal/stack"
)

const mdnsService = "_xbee-gw._tcp"

// mdnsTXT builds the TXT records of the gateway service.
func mdnsTXT(status stack.Status, apiKey string) []string {
	txt := []string{"version=" + version}
	if status.IEEE != "" {
		txt = append(txt, "ieee="+status.IEEE)
	}
	return append(txt, "api-auth="+strconv.FormatBool(apiKey != ""))
}

func listenPort(addr string) (int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("web.listen: %w", err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("web.listen: invalid port %q", p)
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return 0, fmt.Errorf("web.listen %s is loopback only", addr)
	}
	return port, nil
}

func initMDNS(st *stack.Stack, cfg *Config, logger *slog.Logger) stopFunc {
	if !cfg.MDNS.Enabled {
		return nil
	}
	port, err := listenPort(cfg.Web.Listen)
	if err != nil {
		logger.Warn("mdns not advertised", "err", err)
		return nil
	}
	server, err := zeroconf.Register(cfg.MDNS.Instance, mdnsService, "local.", port, mdnsTXT(st.Status(), cfg.Web.APIKey), nil)
	if err != nil {
		logger.Error("mdns register", "err", err)
		return nil
	}
	logger.Info("mdns advertising", "instance", cfg.MDNS.Instance, "service", mdnsService, "port", port)
	return server.Shutdown
}
