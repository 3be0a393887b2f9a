package handlers

// notices собирает уведомления контроллера за один запрос
// и реализует service.Notifier.
type notices struct {
	infos     []string
	errors    []string
	documents []string

	// confirmed — оператор уже подтвердил действие (confirmed=true в форме)
	confirmed bool
	// asked — вопрос, на который нужно подтверждение
	asked string
	// target — формуляр, к которому относится вопрос
	target string
}

func (n *notices) Info(key string) {
	n.infos = append(n.infos, key)
}

func (n *notices) Error(message string) {
	n.errors = append(n.errors, message)
}

func (n *notices) Confirm(key string) bool {
	if !n.confirmed {
		n.asked = key
	}
	return n.confirmed
}

func (n *notices) OpenDocument(url string) {
	n.documents = append(n.documents, url)
}

// lastDocument возвращает последний открытый документ или "".
func (n *notices) lastDocument() string {
	if len(n.documents) == 0 {
		return ""
	}
	return n.documents[len(n.documents)-1]
}

// empty сообщает, что оператору нечего показать, кроме обновлённого экрана.
func (n *notices) empty() bool {
	return len(n.infos) == 0 && len(n.errors) == 0 && n.asked == ""
}
