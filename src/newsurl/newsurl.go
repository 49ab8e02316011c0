package newsurl

import (
	"net/url"
	"strings"

	"github.com/newsdesk-cms/newsdesk/src/config"
)

type Q struct {
	Name  string
	Value string
}

var baseUrl string

func init() {
	SetGlobalBaseUrl(config.Config.BaseUrl)
}

func SetGlobalBaseUrl(fullBaseUrl string) {
	baseUrl = strings.TrimSuffix(fullBaseUrl, "/")
}

func Url(path string, query []Q) string {
	return join(baseUrl, path, query)
}

/*
FrontendUrl builds a link into the single-page frontend, which lives on its
own origin. Email links point there rather than at the API.
*/
func FrontendUrl(frontendBase string, path string, query []Q) string {
	return join(strings.TrimSuffix(frontendBase, "/"), path, query)
}

func join(base string, path string, query []Q) string {
	result := base + "/" + trim(path)
	if q := encodeQuery(query); q != "" {
		result += "?" + q
	}
	return result
}

func trim(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}

func encodeQuery(query []Q) string {
	result := url.Values{}
	for _, q := range query {
		result.Set(q.Name, q.Value)
	}
	return result.Encode()
}
