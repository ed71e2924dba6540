package main

import (
	"net/http"
	"time"
)

// Shared client for the Monday.com and OpenAI calls. Board fetches paginate,
// so the timeout bounds each page request, not the whole fetch.
const externalHTTPTimeout = 30 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}
