// Package trophy содержит доменную модель достижений профиля разработчика.
//
// Пакет отвечает за:
//   - классификацию значения метрики по лестнице тиров (Classify)
//   - подсчёт XP и уровня по геометрической лестнице (LevelLadder.CalculateLevel)
//   - проверку скрытых достижений (EvaluateSecrets)
//   - сборку упорядоченного набора карточек (Builder.Build)
//
// Все функции пакета чистые и детерминированные: одинаковые метрики
// всегда дают одинаковый набор в одинаковом порядке. Сетевых вызовов
// здесь нет, данные приходят из агрегатора прикладного слоя.
package trophy
