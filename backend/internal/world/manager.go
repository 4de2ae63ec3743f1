package world

import "sync"

// Collection упорядоченная коллекция объектов сцены (мебель или элементы комнаты)
type Collection struct {
	objects []*SceneObject
	index   map[string]*SceneObject
	mu      sync.RWMutex
}

func NewCollection() *Collection {
	return &Collection{
		index: make(map[string]*SceneObject),
	}
}

// Add добавляет объект в конец коллекции. Объект с тем же ID заменяется на месте.
func (c *Collection) Add(obj *SceneObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[obj.ID]; exists {
		for i, existing := range c.objects {
			if existing.ID == obj.ID {
				c.objects[i] = obj
				break
			}
		}
		c.index[obj.ID] = obj
		return
	}
	c.objects = append(c.objects, obj)
	c.index[obj.ID] = obj
}

// Remove удаляет объект по идентификатору
func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[id]; !exists {
		return false
	}
	delete(c.index, id)
	for i, obj := range c.objects {
		if obj.ID == id {
			c.objects = append(c.objects[:i], c.objects[i+1:]...)
			break
		}
	}
	return true
}

func (c *Collection) Get(id string) (*SceneObject, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, exists := c.index[id]
	return obj, exists
}

// All возвращает объекты в порядке добавления
func (c *Collection) All() []*SceneObject {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*SceneObject, len(c.objects))
	copy(result, c.objects)
	return result
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// Clear удаляет все объекты
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = nil
	c.index = make(map[string]*SceneObject)
}
