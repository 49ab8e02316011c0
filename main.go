package main

import (
	_ "github.com/newsdesk-cms/newsdesk/src/admintools"
	_ "github.com/newsdesk-cms/newsdesk/src/migration"
	"github.com/newsdesk-cms/newsdesk/src/website"
)

func main() {
	website.WebsiteCommand.Execute()
}
