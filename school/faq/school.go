package faq

// VacationAnswer is shared with the free-text shortcut for holiday questions.
const VacationAnswer = "Ближайшие каникулы с 25 марта по 2 апреля"

// School returns the matcher with the school's answers and keyboard questions.
func School() *Matcher {
	return New(
		Entry{Keyword: "каникулы", Answer: VacationAnswer},
		Entry{Keyword: "собрание", Answer: "Следующее родительское собрание 5 апреля в 18:00"},
		Entry{Keyword: "расписание", Answer: "Чтобы узнать расписание, нажмите кнопку '📅 Расписание' и введите класс и день недели"},
		Entry{Keyword: "учитель", Answer: "Контакты учителей можно получить у классного руководителя"},
		Entry{Keyword: "домашнее задание", Answer: "Домашние задания публикуются в электронном дневнике"},
		Entry{Keyword: "кружки", Answer: "Список кружков и секций доступен на сайте школы"},
	).WithQuestions(
		"Когда каникулы?",
		"Когда собрание?",
		"Как узнать расписание?",
		"Как связаться с учителем?",
		"Где найти домашнее задание?",
		"Какие есть кружки?",
	)
}
