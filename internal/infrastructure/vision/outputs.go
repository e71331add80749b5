package vision

// inputLayerName служебный входной слой, который сеть иногда отдаёт среди выходов
const inputLayerName = "_input"

// collectOutputNames читает имена слоёв ids по порядку и отбрасывает входной слой.
// name должен освобождать всё, что получил для чтения имени.
func collectOutputNames(ids []int, name func(id int) string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := name(id); n != inputLayerName {
			names = append(names, n)
		}
	}
	return names
}
