package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"postfeed/domain"
	"postfeed/errs"
)

// Credentials are the client credentials registered at an oauth provider.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Provider signs users in through one oauth provider and turns what the
// provider knows about them into a domain.OAuthIdentity.
type Provider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
	// EmailsURL is queried when the user info carries no email address.
	EmailsURL string
	parse     func(body []byte) (*domain.OAuthIdentity, error)
}

// NewProviders returns the supported providers that have credentials
// configured, keyed by name. siteURL is the public url of this server, the
// callback urls are derived from it.
func NewProviders(siteURL string, creds map[string]Credentials) map[string]*Provider {
	providers := make(map[string]*Provider)
	for _, p := range []*Provider{
		{
			Name:        domain.ProviderGithub,
			Config:      &oauth2.Config{Endpoint: endpoints.GitHub, Scopes: []string{"read:user", "user:email"}},
			UserInfoURL: "https://api.github.com/user",
			EmailsURL:   "https://api.github.com/user/emails",
			parse:       parseGithub,
		},
		{
			Name:        domain.ProviderGoogle,
			Config:      &oauth2.Config{Endpoint: endpoints.Google, Scopes: []string{"openid", "email", "profile"}},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			parse:       parseGoogle,
		},
		{
			Name:        domain.ProviderDiscord,
			Config:      &oauth2.Config{Endpoint: endpoints.Discord, Scopes: []string{"identify", "email"}},
			UserInfoURL: "https://discord.com/api/users/@me",
			parse:       parseDiscord,
		},
	} {
		c, ok := creds[p.Name]
		if !ok || c.ClientID == "" || c.ClientSecret == "" {
			continue
		}
		p.Config.ClientID = c.ClientID
		p.Config.ClientSecret = c.ClientSecret
		p.Config.RedirectURL = strings.TrimRight(siteURL, "/") + "/oauth/" + p.Name + "/callback"
		providers[p.Name] = p
	}
	return providers
}

// ProviderNames returns the names of the providers, sorted.
func ProviderNames(providers map[string]*Provider) []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AuthCodeURL returns the url of the provider's consent page.
func (p *Provider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token and fetches the identity
// of the user it was issued for.
func (p *Provider) Exchange(ctx context.Context, code string) (*domain.OAuthIdentity, error) {
	if code == "" {
		return nil, errs.Errorf(errs.EUNAUTHENTICATED, "Signing in with %s was cancelled.", p.Name)
	}
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		log.Printf("[oauth] %s code exchange: %s", p.Name, err)
		return nil, errs.Errorf(errs.EUNAUTHENTICATED, "Signing in with %s failed, please try again.", p.Name)
	}
	return p.Identify(ctx, p.Config.Client(ctx, token))
}

// Identify fetches the identity of the user the client is authorized for.
func (p *Provider) Identify(ctx context.Context, client *http.Client) (*domain.OAuthIdentity, error) {
	body, err := fetch(ctx, client, p.UserInfoURL)
	if err != nil {
		return nil, err
	}
	identity, err := p.parse(body)
	if err != nil {
		return nil, err
	}
	if identity.Email == "" && p.EmailsURL != "" {
		if identity.Email, err = primaryEmail(ctx, client, p.EmailsURL); err != nil {
			return nil, err
		}
	}
	if identity.Email == "" {
		return nil, errs.Errorf(errs.EUNAUTHENTICATED, "Your %s account has no verified email address.", p.Name)
	}
	identity.Provider = p.Name
	return identity, nil
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("err fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("err fetching %s: %s", url, resp.Status)
	}
	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("err decoding %s: %w", url, err)
	}
	return body, nil
}

func primaryEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	body, err := fetch(ctx, client, url)
	if err != nil {
		return "", err
	}
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func parseGithub(body []byte) (*domain.OAuthIdentity, error) {
	var u struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	first, last := splitName(u.Name)
	return &domain.OAuthIdentity{
		ProviderUserID: idString(u.ID),
		Email:          u.Email,
		Username:       u.Login,
		FirstName:      first,
		LastName:       last,
		AvatarURL:      u.AvatarURL,
	}, nil
}

func parseGoogle(body []byte) (*domain.OAuthIdentity, error) {
	var u struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	identity := &domain.OAuthIdentity{
		ProviderUserID: u.ID,
		FirstName:      u.GivenName,
		LastName:       u.FamilyName,
		AvatarURL:      u.Picture,
	}
	if u.VerifiedEmail {
		identity.Email = u.Email
		identity.Username, _, _ = strings.Cut(u.Email, "@")
	}
	return identity, nil
}

func parseDiscord(body []byte) (*domain.OAuthIdentity, error) {
	var u struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Email      string `json:"email"`
		Verified   bool   `json:"verified"`
		Avatar     string `json:"avatar"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	first, last := splitName(u.GlobalName)
	identity := &domain.OAuthIdentity{
		ProviderUserID: u.ID,
		Username:       u.Username,
		FirstName:      first,
		LastName:       last,
	}
	if u.Verified {
		identity.Email = u.Email
	}
	if u.Avatar != "" {
		identity.AvatarURL = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
	}
	return identity, nil
}

// splitName splits a display name into a first name and the rest.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
