package web

import (
	"net/http"
	"strings"

	"github.com/biolinq/biolinq/internal/service"
)

// Dashboard forms post an "intent" field that selects the action. Each entity
// parses its form into one variant of a small closed command set.

type linkCommand interface{ linkCommand() }

type createLinkCommand struct{ Input service.LinkInput }
type deleteLinkCommand struct{ LinkID string }
type reorderLinksCommand struct{ IDs []string }

func (createLinkCommand) linkCommand()   {}
func (deleteLinkCommand) linkCommand()   {}
func (reorderLinksCommand) linkCommand() {}

type domainCommand interface{ domainCommand() }

type setDomainCommand struct{ Domain string }
type removeDomainCommand struct{}
type verifyOwnershipCommand struct{}
type verifyCNAMECommand struct{}

func (setDomainCommand) domainCommand()       {}
func (removeDomainCommand) domainCommand()    {}
func (verifyOwnershipCommand) domainCommand() {}
func (verifyCNAMECommand) domainCommand()     {}

type settingsCommand interface{ settingsCommand() }

type updateGA4Command struct{ MeasurementID string }
type deleteAccountCommand struct{}

func (updateGA4Command) settingsCommand()     {}
func (deleteAccountCommand) settingsCommand() {}

type appearanceCommand interface{ appearanceCommand() }

type updateThemeCommand struct{ Input service.ThemeInput }

func (updateThemeCommand) appearanceCommand() {}

func intent(r *http.Request) string {
	return strings.TrimSpace(r.PostFormValue("intent"))
}

func parseLinkCommand(r *http.Request) (linkCommand, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	switch intent(r) {
	case "create":
		return createLinkCommand{Input: service.LinkInput{
			Emoji: r.PostFormValue("emoji"),
			Title: r.PostFormValue("title"),
			URL:   r.PostFormValue("url"),
		}}, nil
	case "delete":
		return deleteLinkCommand{LinkID: strings.TrimSpace(r.PostFormValue("linkId"))}, nil
	case "reorder":
		return reorderLinksCommand{IDs: formList(r, "linkIds")}, nil
	}
	return nil, service.ErrUnknownIntent
}

func parseDomainCommand(r *http.Request) (domainCommand, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	switch intent(r) {
	case "setCustomDomain":
		return setDomainCommand{Domain: r.PostFormValue("domain")}, nil
	case "removeCustomDomain":
		return removeDomainCommand{}, nil
	case "verifyDomainOwnership":
		return verifyOwnershipCommand{}, nil
	case "verifyCNAME":
		return verifyCNAMECommand{}, nil
	}
	return nil, service.ErrUnknownIntent
}

func parseSettingsCommand(r *http.Request) (settingsCommand, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	switch intent(r) {
	case "updateGA4":
		return updateGA4Command{MeasurementID: r.PostFormValue("measurementId")}, nil
	case "deleteAccount":
		return deleteAccountCommand{}, nil
	}
	return nil, service.ErrUnknownIntent
}

func parseAppearanceCommand(r *http.Request) (appearanceCommand, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	switch intent(r) {
	case "updateTheme":
		return updateThemeCommand{Input: service.ThemeInput{
			Theme:        r.PostFormValue("theme"),
			PrimaryColor: r.PostFormValue("primaryColor"),
			BgColor:      r.PostFormValue("bgColor"),
		}}, nil
	}
	return nil, service.ErrUnknownIntent
}

// formList accepts a field either repeated or as one comma-separated value.
func formList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.PostForm[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
