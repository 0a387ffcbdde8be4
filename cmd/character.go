package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/destiny-cli/internal/application"
	"github.com/bnema/destiny-cli/internal/domain"
)

type characterResource func(*application.CharacterEndpoint, context.Context, domain.CharacterID) (json.RawMessage, error)

var characterResources = map[string]characterResource{
	"summary":     (*application.CharacterEndpoint).Summary,
	"inventory":   (*application.CharacterEndpoint).Inventory,
	"activities":  (*application.CharacterEndpoint).Activities,
	"progression": (*application.CharacterEndpoint).Progression,
	"advisors":    (*application.CharacterEndpoint).Advisors,
}

func newCharacterCmd(app *app) *cobra.Command {
	var resource string

	cmd := &cobra.Command{
		Use:   "character [character-id|index]",
		Short: "Fetch one resource of a character, the last played one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch, ok := characterResources[strings.ToLower(resource)]
			if !ok {
				return fmt.Errorf("unknown resource %q (want one of %s)", resource, strings.Join(resourceNames(), ", "))
			}

			client, err := app.newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := waitReady(cmd.Context(), client); err != nil {
				return err
			}

			selector := ""
			if len(args) == 1 {
				selector = args[0]
			}
			id, err := resolveCharacter(client.Characters, selector)
			if err != nil {
				return err
			}

			data, err := fetch(client.Character, cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd, data)
		},
	}

	cmd.Flags().StringVarP(&resource, "resource", "r", "inventory", "One of "+strings.Join(resourceNames(), ", "))

	return cmd
}

// resolveCharacter picks a character by id, by index in last played order,
// or the active one when selector is empty. Unknown ids are passed through.
func resolveCharacter(characters *application.Characters, selector string) (domain.CharacterID, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		active, ok := characters.Active()
		if !ok {
			return "", errors.New("account has no characters")
		}
		return active.ID, nil
	}
	if character, ok := characters.Find(domain.CharacterID(selector)); ok {
		return character.ID, nil
	}
	if index, err := strconv.Atoi(selector); err == nil && index >= 0 && index < characters.Len() {
		character, _ := characters.Get(index)
		return character.ID, nil
	}
	return domain.CharacterID(selector), nil
}

func resourceNames() []string {
	names := make([]string, 0, len(characterResources))
	for name := range characterResources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
