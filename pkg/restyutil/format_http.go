package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

// form fields whose values never end up in a dump
var redactedFields = []string{"password", "logintoken", "sesskey"}

const redacted = "<redacted>"

func formatHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		for _, v := range headers[k] {
			if k == "Cookie" || k == "Set-Cookie" {
				v = redacted
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func redactQuery(values url.Values) url.Values {
	for _, field := range redactedFields {
		if values.Has(field) {
			values.Set(field, redacted)
		}
	}
	return values
}

func redactUrl(u *url.URL) string {
	if u == nil {
		return ""
	}
	copied := *u
	copied.RawQuery = redactQuery(copied.Query()).Encode()
	return copied.String()
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil || req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	// resty hands bodiless requests a GetBody that returns nil
	if body == nil {
		return ""
	}
	defer body.Close()
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}

	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		form, err := url.ParseQuery(string(readBody))
		if err == nil {
			return redactQuery(form).Encode()
		}
	}
	return string(readBody)
}

// formatHttpMessage renders a request and its response as plain text with
// credentials, cookies and session keys redacted.
func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder
	raw := res.Request.RawRequest

	out.WriteString("---- REQUEST ----\n\n")
	if raw != nil {
		fmt.Fprintf(&out, "%s %s\n\n", raw.Method, redactUrl(raw.URL))
		formatHeaders(&out, raw.Header)
		out.WriteString("\n")
		out.WriteString(formatRequestBody(raw))
	} else {
		fmt.Fprintf(&out, "%s %s\n", res.Request.Method, res.Request.URL)
	}

	out.WriteString("\n\n---- RESPONSE ----\n\n")
	var finalUrl *url.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL
	}
	fmt.Fprintf(&out, "%d %s\n\n", res.StatusCode(), redactUrl(finalUrl))
	formatHeaders(&out, res.Header())
	out.WriteString("\n")
	out.Write(res.Body())

	return out.String()
}
