package ledger

import (
	"path/filepath"

	"deobf-bot/internal/store"
)

const (
	accountsFileName = "tokens.json"
	settingsFileName = "settings.json"
)

// FileStore keeps accounts and settings in two JSON documents under a data
// directory, overwriting each whole file on every mutation. A missing or
// unparseable file yields empty defaults rather than an error, so a corrupt
// store restarts fresh instead of wedging the service.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := store.Mkdir(dir); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) accountsPath() string {
	return filepath.Join(f.dir, accountsFileName)
}

func (f *FileStore) settingsPath() string {
	return filepath.Join(f.dir, settingsFileName)
}

func (f *FileStore) LoadAccounts() (map[string]Record, error) {
	accounts := make(map[string]Record)
	if err := store.ReadJSON(f.accountsPath(), &accounts); err != nil {
		return make(map[string]Record), nil
	}
	if accounts == nil {
		accounts = make(map[string]Record)
	}
	return accounts, nil
}

func (f *FileStore) SaveAccounts(accounts map[string]Record) error {
	return store.WriteJSON(f.accountsPath(), accounts)
}

func (f *FileStore) LoadSettings() (Settings, error) {
	settings := Settings{TokenSystemEnabled: true}
	if err := store.ReadJSON(f.settingsPath(), &settings); err != nil {
		return Settings{TokenSystemEnabled: true}, nil
	}
	return settings, nil
}

func (f *FileStore) SaveSettings(settings Settings) error {
	return store.WriteJSON(f.settingsPath(), settings)
}
