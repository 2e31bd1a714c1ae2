package dialog

import "github.com/m3rciful/schoolbot/core/telegram/keyboard"

// Button labels of the reply keyboards.
const (
	ButtonSchedule      = "📅 Расписание"
	ButtonEvents        = "📌 События"
	ButtonFAQ           = "ℹ️ FAQ"
	ButtonOtherQuestion = "Другой вопрос"
)

const (
	textGreeting          = "Привет, %s! Я школьный бот. Чем могу помочь?"
	textSchedulePrompt    = "Введите класс и день недели (например, '7A Понедельник'):"
	textScheduleFound     = "📚 Расписание для %s на %s:\n%s"
	textScheduleNotFound  = "❌ Расписание не найдено. Проверьте правильность ввода."
	textScheduleError     = "Произошла ошибка при получении расписания. Попробуйте позже."
	textEventsHeader      = "📅 Все события:"
	textEventsUpcoming    = "✅ Предстоящие"
	textEventsPast        = "❌ Прошедшие"
	textNoEvents          = "На данный момент нет запланированных событий."
	textEventsError       = "Произошла ошибка при получении событий."
	textFAQMenu           = "Выберите вопрос из списка или задайте свой:"
	textOtherQuestion     = "Напишите свой вопрос и поставьте в конце знак «?»"
	textAIUnavailable     = "Не могу получить ответ. Попробуйте позже."
	textNearestEvents     = "Ближайшие события:"
	textNoNearestEvents   = "Ближайших событий не найдено"
	textShortHint         = "Не понял запрос. Воспользуйтесь меню ниже."
	textMediaHint         = "Я понимаю только текстовые сообщения. Воспользуйтесь меню ниже."
	textPasswordPrompt    = "Введите пароль администратора:"
	textAccessGranted     = "✅ Доступ разрешен. Используйте команды:\n/add_schedule - Добавить расписание\n/add_event - Добавить событие"
	textAccessDenied      = "❌ Неверный пароль"
	textAddSchedulePrompt = "Введите данные в формате: Класс День Уроки\nПример: 7А Понедельник Математика,Физика,Химия"
	textAddScheduleFormat = "❌ Ошибка: ожидается ровно три части через пробел: Класс День Уроки\nПример: 7А Понедельник Математика,Физика,Химия"
	textScheduleAdded     = "✅ Расписание добавлено!"
	textAddEventPrompt    = "Введите данные в формате: Название | Дата | Описание\nПример: Осенний концерт | 25.10.2026 | Актовый зал, 15:00"
	textAddEventFormat    = "❌ Ошибка: ожидается формат Название | Дата | Описание\nПример: Осенний концерт | 25.10.2026 | Актовый зал, 15:00"
	textAddEventDate      = "❌ Ошибка: не удалось разобрать дату %q. Используйте ДД.ММ.ГГГГ или ГГГГ-ММ-ДД."
	textEventAdded        = "✅ Событие добавлено!"
	textSaveFailed        = "❌ Ошибка: не удалось сохранить данные. Попробуйте позже."
)

// mainMenu is the keyboard shown after greetings and answers.
var mainMenu = keyboard.Column(ButtonSchedule, ButtonEvents, ButtonFAQ)
