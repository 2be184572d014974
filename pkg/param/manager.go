package param

import (
	"sync"
	"sync/atomic"
)

// ChangeListener is called on the main thread when a parameter's value
// changes, either through Set or through a batch applied from the
// audio-to-main reducing queue.
type ChangeListener func(id ID, oldValue, newValue float64)

// ListenerToken identifies a registered ChangeListener for RemoveListener.
type ListenerToken int32

// Manager is the main-thread owner of a plugin instance's parameters: it
// validates and stores values and fans out change notifications. P never
// touches a Manager directly; it exchanges values with M only through the
// reducing queues in reducing.go.
type Manager struct {
	mutex      sync.RWMutex
	params     map[ID]*Parameter
	paramOrder []ID

	listenerMu sync.RWMutex
	listeners  map[ListenerToken]ChangeListener
	nextToken  int32
}

// NewManager creates an empty parameter manager.
func NewManager() *Manager {
	return &Manager{
		params:    make(map[ID]*Parameter),
		listeners: make(map[ListenerToken]ChangeListener),
	}
}

// Register adds a new parameter. It fails if the ID is already registered.
func (m *Manager) Register(info Info) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.params[info.ID]; exists {
		return ErrParamExists
	}

	p := &Parameter{Info: info}
	atomic.StoreInt64(&p.value, floatToBits(info.DefaultValue))

	if info.Flags&(FlagBoundedBelow|FlagBoundedAbove) != 0 {
		p.validator = func(value float64) error {
			if info.Flags&FlagBoundedBelow != 0 && value < info.MinValue {
				return ErrValueBelowMinimum
			}
			if info.Flags&FlagBoundedAbove != 0 && value > info.MaxValue {
				return ErrValueAboveMaximum
			}
			return nil
		}
	}

	m.params[info.ID] = p
	m.paramOrder = append(m.paramOrder, info.ID)
	return nil
}

// RegisterAll registers multiple parameters, stopping at the first error.
func (m *Manager) RegisterAll(infos ...Info) error {
	for _, info := range infos {
		if err := m.Register(info); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of registered parameters.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.params)
}

// GetInfo returns a parameter's metadata.
func (m *Manager) GetInfo(id ID) (Info, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if p, exists := m.params[id]; exists {
		return p.Info, nil
	}
	return Info{}, ErrInvalidParam
}

// GetInfoByIndex returns a parameter's metadata by registration order, the
// shape a plugin's param_info(index) call needs.
func (m *Manager) GetInfoByIndex(index int) (Info, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if index < 0 || index >= len(m.paramOrder) {
		return Info{}, ErrInvalidParam
	}
	return m.params[m.paramOrder[index]].Info, nil
}

// Get returns a parameter's current value, or 0 if id is unregistered.
func (m *Manager) Get(id ID) float64 {
	m.mutex.RLock()
	p, exists := m.params[id]
	m.mutex.RUnlock()
	if !exists {
		return 0
	}
	return p.Value()
}

// Set validates and stores a new value, notifying listeners if it changed.
func (m *Manager) Set(id ID, value float64) error {
	m.mutex.RLock()
	p, exists := m.params[id]
	m.mutex.RUnlock()
	if !exists {
		return ErrInvalidParam
	}

	oldValue := p.Value()
	if err := p.SetValue(value); err != nil {
		return err
	}

	newValue := p.Value()
	if oldValue != newValue {
		m.notifyListeners(id, oldValue, newValue)
	}
	return nil
}

// GetParameter returns the underlying Parameter for direct atomic access.
func (m *Manager) GetParameter(id ID) (*Parameter, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if p, exists := m.params[id]; exists {
		return p, nil
	}
	return nil, ErrInvalidParam
}

// AddListener registers a change listener and returns a token for removal.
func (m *Manager) AddListener(listener ChangeListener) (ListenerToken, error) {
	if listener == nil {
		return 0, ErrInvalidParam
	}

	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()

	if len(m.listeners) >= MaxListeners {
		return 0, ErrListenerLimitReached
	}

	token := ListenerToken(m.nextToken)
	m.nextToken++
	m.listeners[token] = listener
	return token, nil
}

// RemoveListener removes a previously registered listener by token.
func (m *Manager) RemoveListener(token ListenerToken) bool {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	if _, exists := m.listeners[token]; !exists {
		return false
	}
	delete(m.listeners, token)
	return true
}

// ListenerCount returns the current number of registered listeners.
func (m *Manager) ListenerCount() int {
	m.listenerMu.RLock()
	defer m.listenerMu.RUnlock()
	return len(m.listeners)
}

func (m *Manager) notifyListeners(id ID, oldValue, newValue float64) {
	m.listenerMu.RLock()
	snapshot := make([]ChangeListener, 0, len(m.listeners))
	for _, l := range m.listeners {
		snapshot = append(snapshot, l)
	}
	m.listenerMu.RUnlock()

	for _, l := range snapshot {
		l(id, oldValue, newValue)
	}
}

// GetAll returns a snapshot of every parameter's current value.
func (m *Manager) GetAll() map[ID]float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	values := make(map[ID]float64, len(m.params))
	for id, p := range m.params {
		values[id] = p.Value()
	}
	return values
}

// SetAll applies a batch of values, ignoring invalid IDs. It is used to
// drain the audio-to-main reducing queue into the Manager on M's idle tick.
func (m *Manager) SetAll(values map[ID]float64) {
	for id, value := range values {
		_ = m.Set(id, value)
	}
}

// ResetToDefaults restores every parameter to its registered default.
func (m *Manager) ResetToDefaults() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, p := range m.params {
		atomic.StoreInt64(&p.value, floatToBits(p.Info.DefaultValue))
	}
}

// ForEach calls fn for every parameter in registration order.
func (m *Manager) ForEach(fn func(Info, float64)) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, id := range m.paramOrder {
		p := m.params[id]
		fn(p.Info, p.Value())
	}
}
