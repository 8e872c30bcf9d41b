package mockapi

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var errNotFound = errors.New("not found")

// Account is a portal user as the mock backend stores it.
type Account struct {
	ID           int
	Name         string
	Email        string
	PasswordHash string
	Role         string // "student" or "admin"

	// Academic attributes surfaced through the profile mapping.
	StudentID  string
	RegNo      string
	Session    string
	Department string
	CGPA       float64
	Courses    []string
}

type accountRepo struct {
	lock     sync.RWMutex
	accounts map[int]*Account
	nextID   int
}

func newAccountRepo() *accountRepo {
	return &accountRepo{accounts: make(map[int]*Account), nextID: 1}
}

func (r *accountRepo) Create(account *Account) *Account {
	r.lock.Lock()
	defer r.lock.Unlock()
	account.ID = r.nextID
	r.nextID++
	r.accounts[account.ID] = account
	return account
}

func (r *accountRepo) Get(id int) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, errNotFound
	}
	return account, nil
}

func (r *accountRepo) GetByEmail(email string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, errNotFound
}

func (r *accountRepo) List(skip, limit int) []*Account {
	r.lock.RLock()
	defer r.lock.RUnlock()
	accounts := make([]*Account, 0, len(r.accounts))
	for id := 1; id < r.nextID; id++ {
		if account, ok := r.accounts[id]; ok {
			accounts = append(accounts, account)
		}
	}
	if skip >= len(accounts) {
		return nil
	}
	accounts = accounts[skip:]
	if limit > 0 && limit < len(accounts) {
		accounts = accounts[:limit]
	}
	return accounts
}

func (r *accountRepo) Delete(id int) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return errNotFound
	}
	delete(r.accounts, id)
	return nil
}

// Transaction is a submitted payment.
type Transaction struct {
	TransactionID string
	AccountID     int
	ServiceID     int
	Amount        float64
	Status        string
	Consumed      bool // set once a document has been generated from it
	CreatedAt     time.Time
}

type transactionRepo struct {
	lock         sync.RWMutex
	transactions map[string]*Transaction
}

func newTransactionRepo() *transactionRepo {
	return &transactionRepo{transactions: make(map[string]*Transaction)}
}

func (r *transactionRepo) Put(tx *Transaction) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.transactions[tx.TransactionID] = tx
}

func (r *transactionRepo) List() []*Transaction {
	r.lock.RLock()
	defer r.lock.RUnlock()
	txs := make([]*Transaction, 0, len(r.transactions))
	for _, tx := range r.transactions {
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].TransactionID < txs[j].TransactionID
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
	return txs
}

func (r *transactionRepo) Get(transactionID string) (*Transaction, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	tx, ok := r.transactions[transactionID]
	if !ok {
		return nil, errNotFound
	}
	return tx, nil
}

// IssuedDocument is a generated certificate held by the mock backend.
type IssuedDocument struct {
	ID          int
	AccountID   int
	Title       string
	ReferenceNo string
	QRCode      string
	Status      string
	CreatedAt   time.Time
}

type documentRepo struct {
	lock      sync.RWMutex
	documents map[int]*IssuedDocument
	byRef     map[string]int
	nextID    int
}

func newDocumentRepo() *documentRepo {
	return &documentRepo{
		documents: make(map[int]*IssuedDocument),
		byRef:     make(map[string]int),
		nextID:    1,
	}
}

func (r *documentRepo) Create(doc *IssuedDocument) *IssuedDocument {
	r.lock.Lock()
	defer r.lock.Unlock()
	doc.ID = r.nextID
	r.nextID++
	r.documents[doc.ID] = doc
	r.byRef[doc.ReferenceNo] = doc.ID
	return doc
}

func (r *documentRepo) Get(id int) (*IssuedDocument, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, errNotFound
	}
	return doc, nil
}

func (r *documentRepo) GetByRef(referenceNo string) (*IssuedDocument, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.byRef[referenceNo]
	if !ok {
		return nil, errNotFound
	}
	return r.documents[id], nil
}

func (r *documentRepo) ListByAccount(accountID int) []*IssuedDocument {
	r.lock.RLock()
	defer r.lock.RUnlock()
	docs := make([]*IssuedDocument, 0)
	for id := 1; id < r.nextID; id++ {
		if doc, ok := r.documents[id]; ok && doc.AccountID == accountID {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (r *documentRepo) Delete(id int) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return errNotFound
	}
	delete(r.byRef, doc.ReferenceNo)
	delete(r.documents, id)
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(hash), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
