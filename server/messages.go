package server

import (
	"net/http"

	"golang.org/x/text/language"
)

// Locale is a supported response language.
type Locale string

// Supported locales.
const (
	LocaleEN Locale = "en"
	LocaleTR Locale = "tr"
)

// MessageKey names a localized route message.
type MessageKey string

// Route message keys.
const (
	MsgLoginFailed   MessageKey = "auth.login_failed"
	MsgUnauthorized  MessageKey = "auth.unauthorized"
	MsgForbidden     MessageKey = "auth.forbidden"
	MsgRefreshFailed MessageKey = "auth.refresh_failed"
	MsgUnexpected    MessageKey = "common.unexpected"
	MsgNotFound      MessageKey = "common.not_found"
	MsgInvalidInput  MessageKey = "common.invalid_input"

	MsgRegisterFailed       MessageKey = "auth.register_failed"
	MsgProfileUpdateFailed  MessageKey = "profile.update_failed"
	MsgProfileDeleteFailed  MessageKey = "profile.delete_failed"
	MsgPasswordChangeFailed MessageKey = "profile.password_failed"
	MsgClubLoadFailed       MessageKey = "club.load_failed"
	MsgClubUpdateFailed     MessageKey = "club.update_failed"
	MsgClubDeleteFailed     MessageKey = "club.delete_failed"
	MsgPlayersLoadFailed    MessageKey = "players.load_failed"
	MsgPlayerAddFailed      MessageKey = "players.add_failed"
	MsgPlayerUpdateFailed   MessageKey = "players.update_failed"
	MsgClubPostsLoadFailed  MessageKey = "club.posts_failed"
	MsgNewsLoadFailed       MessageKey = "club.news_failed"
	MsgPostsLoadFailed      MessageKey = "posts.load_failed"
	MsgPostLoadFailed       MessageKey = "posts.detail_failed"
	MsgProductsLoadFailed   MessageKey = "products.load_failed"
)

var routeMessages = map[MessageKey]map[Locale]string{
	MsgLoginFailed:   {LocaleEN: "Login failed", LocaleTR: "Giriş başarısız"},
	MsgUnauthorized:  {LocaleEN: "Unauthorized", LocaleTR: "Yetkisiz erişim"},
	MsgForbidden:     {LocaleEN: "Forbidden", LocaleTR: "Erişim engellendi"},
	MsgRefreshFailed: {LocaleEN: "Refresh failed", LocaleTR: "Oturum yenileme başarısız"},
	MsgUnexpected:    {LocaleEN: "Unexpected error", LocaleTR: "Beklenmeyen bir hata oluştu"},
	MsgNotFound:      {LocaleEN: "Not found", LocaleTR: "Bulunamadı"},
	MsgInvalidInput:  {LocaleEN: "Invalid input", LocaleTR: "Geçersiz girdi"},

	MsgRegisterFailed:       {LocaleEN: "Register failed", LocaleTR: "Kayıt başarısız"},
	MsgProfileUpdateFailed:  {LocaleEN: "Update failed", LocaleTR: "Güncelleme başarısız"},
	MsgProfileDeleteFailed:  {LocaleEN: "Account could not be deleted", LocaleTR: "Hesap silinemedi"},
	MsgPasswordChangeFailed: {LocaleEN: "Password could not be updated", LocaleTR: "Parola güncellenemedi"},
	MsgClubLoadFailed:       {LocaleEN: "Club could not be loaded", LocaleTR: "Kulüp bilgisi getirilemedi"},
	MsgClubUpdateFailed:     {LocaleEN: "Club update failed", LocaleTR: "Kulüp güncelleme başarısız"},
	MsgClubDeleteFailed:     {LocaleEN: "Club delete failed", LocaleTR: "Kulüp silme başarısız"},
	MsgPlayersLoadFailed:    {LocaleEN: "Players could not be loaded", LocaleTR: "Oyuncular yüklenemedi"},
	MsgPlayerAddFailed:      {LocaleEN: "Player could not be added", LocaleTR: "Oyuncu eklenemedi"},
	MsgPlayerUpdateFailed:   {LocaleEN: "Player could not be updated", LocaleTR: "Oyuncu güncellenemedi"},
	MsgClubPostsLoadFailed:  {LocaleEN: "Club posts could not be loaded", LocaleTR: "Kulüp haberleri yüklenemedi"},
	MsgNewsLoadFailed:       {LocaleEN: "News could not be loaded", LocaleTR: "Haberler yüklenemedi"},
	MsgPostsLoadFailed:      {LocaleEN: "Posts could not be loaded", LocaleTR: "Haberler yüklenemedi"},
	MsgPostLoadFailed:       {LocaleEN: "Post could not be loaded", LocaleTR: "Haber detayı getirilemedi"},
	MsgProductsLoadFailed:   {LocaleEN: "Failed to load products", LocaleTR: "Ürünler yüklenemedi"},
}

var (
	supportedLocales = []Locale{LocaleEN, LocaleTR}
	localeMatcher    = language.NewMatcher([]language.Tag{language.English, language.Turkish})
)

// LocaleFromRequest picks the response locale from the Accept-Language header. English is the default.
func LocaleFromRequest(r *http.Request) Locale {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return LocaleEN
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return LocaleEN
	}

	_, index, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return LocaleEN
	}
	return supportedLocales[index]
}

// Message returns the text of key in locale, falling back to English and then to the unexpected-error text.
func Message(key MessageKey, locale Locale) string {
	bundle, ok := routeMessages[key]
	if !ok {
		return routeMessages[MsgUnexpected][LocaleEN]
	}
	if msg, ok := bundle[locale]; ok {
		return msg
	}
	return bundle[LocaleEN]
}
